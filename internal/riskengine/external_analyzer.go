package riskengine

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/veripay/riskengine/internal/blocklist"
	"github.com/veripay/riskengine/pkg/models"
)

// fraudPatterns are phone-number shapes seen in known fraud campaigns:
// a single repeated digit, sequential test numbers and premium-rate prefixes.
var fraudPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\+?(?:0{9,}|1{9,}|2{9,}|3{9,}|4{9,}|5{9,}|6{9,}|7{9,}|8{9,}|9{9,})$`),
	regexp.MustCompile(`^\+?123456\d*$`),
	regexp.MustCompile(`^\+?1900\d{6,}$`),
}

// ExternalAnalyzer checks the transaction's phone number against the
// blocklist and known fraud patterns. Any lookup failure fails open with a
// zero score; this factor must never block the pipeline on its own faults.
type ExternalAnalyzer struct {
	blocklist blocklist.Blocklist
	logger    *zap.Logger
}

// NewExternalAnalyzer creates the external blocklist/pattern analyzer.
func NewExternalAnalyzer(bl blocklist.Blocklist, logger *zap.Logger) *ExternalAnalyzer {
	return &ExternalAnalyzer{blocklist: bl, logger: logger}
}

func (a *ExternalAnalyzer) Name() string { return "external_database" }

func (a *ExternalAnalyzer) Analyze(ctx context.Context, tx models.TransactionContext) (models.FactorScore, error) {
	if tx.PhoneNumber == "" {
		return models.FactorScore{}, nil
	}

	blocked, err := a.blocklist.Contains(ctx, tx.PhoneNumber)
	if err != nil {
		a.logger.Warn("blocklist lookup failed, failing open", zap.Error(err))
		return models.FactorScore{}, nil
	}
	if blocked {
		return models.FactorScore{
			Score:   100,
			Reasons: []string{"phone number is blocklisted"},
		}, nil
	}

	for _, pattern := range fraudPatterns {
		if pattern.MatchString(tx.PhoneNumber) {
			return models.FactorScore{
				Score:   80,
				Reasons: []string{"phone number matches known fraud pattern"},
			}, nil
		}
	}
	return models.FactorScore{}, nil
}
