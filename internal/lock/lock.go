// internal/lock/lock.go
//
// Keyed mutual exclusion for game channels.
//
// Characteristics:
//   - One entry per busy key; the entry is a channel closed on release.
//   - Waiters block on that channel but re-check at least every poll
//     interval, so a lost wake-up can never park them forever.
//   - Release runs on every exit path of the task (error or panic).
//   - No fairness among waiters: whoever re-checks first wins.
//   - Process-local. Several processes need a distributed lock instead.

package lock

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultPoll is the longest a waiter sleeps before re-checking.
const DefaultPoll = 5 * time.Second

// Keyed serialises tasks that share a key.
type Keyed struct {
	mu   sync.Mutex               // guards held
	held map[string]chan struct{} // closed when the key's holder releases
	poll time.Duration
}

// New constructs a Keyed lock. poll <= 0 selects DefaultPoll.
func New(poll time.Duration) *Keyed {
	if poll <= 0 {
		poll = DefaultPoll
	}
	return &Keyed{held: make(map[string]chan struct{}), poll: poll}
}

// Do runs fn while holding key. ctx only bounds the wait: fn gets a context
// that keeps ctx's values but is never cancelled, so once it starts it runs
// to completion. fn's error (or panic) is passed through after the key is
// released.
func (k *Keyed) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := k.acquire(ctx, key); err != nil {
		return err
	}
	defer k.release(key)
	return fn(context.WithoutCancel(ctx))
}

// Held returns the number of keys currently locked.
func (k *Keyed) Held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.held)
}

func (k *Keyed) acquire(ctx context.Context, key string) error {
	for {
		k.mu.Lock()
		done, busy := k.held[key]
		if !busy {
			k.held[key] = make(chan struct{})
			k.mu.Unlock()
			return nil
		}
		k.mu.Unlock()

		t := time.NewTimer(k.poll)
		select {
		case <-done:
			t.Stop()
		case <-t.C:
			log.Debug().Str("key", key).Dur("poll", k.poll).Msg("lock still held, re-checking")
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

func (k *Keyed) release(key string) {
	k.mu.Lock()
	done := k.held[key]
	delete(k.held, key)
	k.mu.Unlock()
	if done != nil {
		close(done)
	}
}
