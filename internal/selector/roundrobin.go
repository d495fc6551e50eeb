package selector

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/angeloszaimis/dev-router/internal/backend"
)

var ErrEmptyPool = errors.New("backend pool is empty")

type roundRobinSelector struct {
	pool   []backend.Target
	cursor atomic.Uint64
}

// NewRoundRobin returns a selector cycling through pool in order.
// The pool is copied; an empty pool is rejected with ErrEmptyPool.
func NewRoundRobin(pool []backend.Target) (Selector, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	return &roundRobinSelector{
		pool: append([]backend.Target(nil), pool...),
	}, nil
}

func (rr *roundRobinSelector) Select(_ http.Header) backend.Target {
	n := rr.cursor.Add(1)

	index := (n - 1) % uint64(len(rr.pool))

	return rr.pool[index]
}

func (rr *roundRobinSelector) Name() string {
	return ModeRoundRobin
}
