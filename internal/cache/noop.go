package cache

import (
	"context"
	"time"
)

// Noop is used when caching is disabled: every read is a miss and writes
// are discarded.
type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) Invalidate(context.Context, string) error { return nil }

func (Noop) Ping(context.Context) error { return nil }

func (Noop) Close() error { return nil }
