// Package sched provides sleep/wakeup on arbitrary comparable tokens, the
// collaborator blocking IPC primitives use instead of spinning. Any stable,
// comparable value may key a wait queue, as long as distinct wait
// conditions (a pipe's read-waiter and write-waiter, say) use distinct
// tokens.
//
// Scheduler hands out one condition variable per token, built on top of the
// caller's own lock, so Sleep atomically releases that lock and reacquires
// it on wake.
package sched

import "sync"

// Scheduler hands out per-token condition variables bound to a
// caller-supplied lock.
type Scheduler struct {
	mu    sync.Mutex
	conds map[any]*sync.Cond
}

// New returns an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{conds: make(map[any]*sync.Cond)}
}

func (s *Scheduler) condFor(token any, lock sync.Locker) *sync.Cond {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conds[token]
	if !ok {
		c = sync.NewCond(lock)
		s.conds[token] = c
	}
	return c
}

// Sleep atomically releases lock and blocks the calling goroutine until a
// Wakeup on token, reacquiring lock before returning. lock must be the same
// lock used for every Sleep/Wakeup pair on this token.
func (s *Scheduler) Sleep(token any, lock sync.Locker) {
	s.condFor(token, lock).Wait()
}

// Wakeup wakes every waiter currently sleeping on token. It is a no-op if
// nothing has ever slept on token.
func (s *Scheduler) Wakeup(token any) {
	s.mu.Lock()
	c, ok := s.conds[token]
	s.mu.Unlock()

	if ok {
		c.Broadcast()
	}
}
