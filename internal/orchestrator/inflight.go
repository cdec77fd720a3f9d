package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// inFlight tracks orchestration keys that are currently running.
type inFlight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newInFlight() *inFlight {
	return &inFlight{keys: make(map[string]struct{})}
}

// acquire claims key, or fails with ErrAlreadyInProgress when it is taken.
// The returned release func is safe to call more than once.
func (f *inFlight) acquire(key string) (release func(), err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.keys[key]; busy {
		return nil, fmt.Errorf("%s: %w", key, ErrAlreadyInProgress)
	}
	f.keys[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.keys, key)
			f.mu.Unlock()
		})
	}, nil
}

// running reports whether key is held.
func (f *inFlight) running(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.keys[key]
	return ok
}

// orchestrationKey identifies a logical task: the existing task ID when
// given, else a digest of the prompt.
func orchestrationKey(prompt, existingTaskID string) string {
	if existingTaskID != "" {
		return existingTaskID
	}
	sum := sha256.Sum256([]byte(prompt))
	return "prompt:" + hex.EncodeToString(sum[:])
}
