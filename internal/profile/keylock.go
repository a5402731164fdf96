package profile

import (
	"hash/fnv"
	"sync"
)

// keyLock is a fixed pool of mutexes keyed by string. It serializes
// read-modify-write cycles per user while using bounded memory regardless of
// how many users are seen; keys hashing to the same shard occasionally
// contend with each other.
type keyLock struct {
	shards [256]sync.Mutex
}

// lock acquires the mutex for key and returns its unlock function.
func (k *keyLock) lock(key string) func() {
	mu := k.shard(key)
	mu.Lock()
	return mu.Unlock
}

func (k *keyLock) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &k.shards[h.Sum32()%256]
}
