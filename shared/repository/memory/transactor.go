// Package memory is an in-process stand-in for the postgres repositories and
// transactor. It applies the same live-row scoping, holds FOR UPDATE row locks
// until the surrounding transaction ends and undoes writes on rollback.
package memory

import (
	"context"
	"sync"

	"hotel/infras/postgres"
)

type txKey struct{}

type lockKey struct {
	table any
	id    int64
}

type txState struct {
	mu       sync.Mutex
	held     map[lockKey]struct{}
	releases []func()
	undo     []func()
}

func stateFrom(ctx context.Context) *txState {
	state, _ := ctx.Value(txKey{}).(*txState)

	return state
}

func (s *txState) holds(key lockKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.held[key]

	return ok
}

func (s *txState) acquired(key lockKey, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.held[key] = struct{}{}
	s.releases = append(s.releases, release)
}

func (s *txState) onRollback(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.undo = append(s.undo, fn)
}

func (s *txState) rollback() {
	s.mu.Lock()
	undo := s.undo
	s.undo = nil
	s.mu.Unlock()

	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

func (s *txState) release() {
	s.mu.Lock()
	releases := s.releases
	s.releases = nil
	s.held = map[lockKey]struct{}{}
	s.mu.Unlock()

	for _, fn := range releases {
		fn()
	}
}

// Transactor implements postgres.Transactor. The *sqlx.Tx handed to fn is
// always nil; tables find the transaction through the context instead.
type Transactor struct{}

func NewTransactor() *Transactor {
	return &Transactor{}
}

func (t *Transactor) WithinTx(ctx context.Context, fn postgres.TxFunc) (err error) {
	if stateFrom(ctx) != nil {
		return fn(ctx, nil)
	}

	state := &txState{held: map[lockKey]struct{}{}}
	ctx = context.WithValue(ctx, txKey{}, state)

	defer state.release()

	defer func() {
		if p := recover(); p != nil {
			state.rollback()

			panic(p)
		}
	}()

	if err = fn(ctx, nil); err != nil {
		state.rollback()

		return err
	}

	return nil
}
