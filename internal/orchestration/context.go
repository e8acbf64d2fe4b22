// Package orchestration carries the shared dependencies of a single run.
// Everything a component touches during deployment arrives through a
// Context; no package keeps global state.
package orchestration

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/hearthlab/hearth/internal/config"
)

// Context wraps all dependencies and state needed for one orchestration
// run. The embedded context.Context carries cancellation.
type Context struct {
	context.Context
	Snapshot *config.Snapshot
	Observer Observer
	Timeouts *config.Timeouts
	RunID    string
}

// NewContext creates a run context with a console observer and timeouts
// from the environment.
func NewContext(ctx context.Context, snapshot *config.Snapshot) *Context {
	return &Context{
		Context:  ctx,
		Snapshot: snapshot,
		Observer: NewConsoleObserver(),
		Timeouts: config.LoadTimeouts(),
		RunID:    NewRunID(),
	}
}

// Config returns the resolved configuration of the snapshot.
func (c *Context) Config() *config.Config {
	return c.Snapshot.Config()
}

// WithObserver returns a copy of the context using the given observer.
func (c *Context) WithObserver(observer Observer) *Context {
	out := *c
	out.Observer = observer
	return &out
}

// NewRunID returns a sortable, collision-resistant run identifier such as
// "20260825-141502-9f3ac1".
func NewRunID() string {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		// Timestamp alone still identifies the run within one host.
		return time.Now().UTC().Format("20060102-150405")
	}
	return time.Now().UTC().Format("20060102-150405") + "-" + hex.EncodeToString(suffix)
}
