package riskengine

import (
	"context"
	"fmt"
	"math"

	"github.com/veripay/riskengine/internal/history"
	"github.com/veripay/riskengine/internal/profile"
	"github.com/veripay/riskengine/pkg/models"
)

// maxDeviceSharing is the distinct-user count above which a fingerprint is
// considered a fraud-farm device.
const maxDeviceSharing = 5

// DeviceAnalyzer scores the transaction's device fingerprint against the
// user's known devices and cross-user sharing.
type DeviceAnalyzer struct {
	profiles *profile.Store
	history  history.TransactionStore
}

// NewDeviceAnalyzer creates the device-fingerprint analyzer.
func NewDeviceAnalyzer(profiles *profile.Store, hist history.TransactionStore) *DeviceAnalyzer {
	return &DeviceAnalyzer{profiles: profiles, history: hist}
}

func (a *DeviceAnalyzer) Name() string { return "device_fingerprint" }

func (a *DeviceAnalyzer) Analyze(ctx context.Context, tx models.TransactionContext) (models.FactorScore, error) {
	if tx.DeviceFingerprint == "" {
		return models.FactorScore{
			Score:   40,
			Reasons: []string{"missing device fingerprint"},
		}, nil
	}

	prof, ok := a.profiles.Lookup(ctx, tx.UserID)
	if !ok {
		return models.FactorScore{
			Score:   50,
			Reasons: []string{"device not seen for this user before"},
		}, nil
	}
	if _, known := prof.KnownDevices[tx.DeviceFingerprint]; !known {
		return models.FactorScore{
			Score:   50,
			Reasons: []string{"device not seen for this user before"},
		}, nil
	}

	shared, err := a.history.CountUsersForDevice(ctx, tx.DeviceFingerprint)
	if err != nil {
		return models.FactorScore{}, fmt.Errorf("failed to count device sharing: %w", err)
	}
	if shared > maxDeviceSharing {
		return models.FactorScore{
			Score:   70,
			Reasons: []string{fmt.Sprintf("device shared across %d users", shared)},
		}, nil
	}
	return models.FactorScore{Score: math.Min(40, float64(shared)*8)}, nil
}
