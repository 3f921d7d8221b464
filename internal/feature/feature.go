// Package feature defines the capability set every monitored data source
// exposes to the dispatch loop, and the generic pieces (Composer,
// DataUpdater, Template) that feature kinds are assembled from.
package feature

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ID identifies one configured feature instance, e.g. "battery0".
type ID string

// NewID derives the instance id from the feature kind and its position in
// the feature list.
func NewID(kind string, ordinal int) ID {
	return ID(fmt.Sprintf("%s%d", kind, ordinal))
}

// Feature is what the dispatch loop drives. Implementations are not safe for
// concurrent use: Refresh and Render are only ever called from the loop.
type Feature interface {
	ID() ID
	Name() string
	// StartNotifier arms the background trigger. Called once, before the loop.
	StartNotifier(ctx context.Context) error
	// Refresh re-derives Data from the external source.
	Refresh(ctx context.Context) error
	// Render formats the current Data. It never blocks and never fails.
	Render() string
}

// Notifier requests refreshes for one feature by sending Refresh messages.
type Notifier interface {
	Start(ctx context.Context) error
}

// Updater owns a feature's Data.
type Updater interface {
	Update(ctx context.Context) error
	Render() string
}

// Composer binds a Notifier and an Updater into a Feature.
type Composer[N Notifier, U Updater] struct {
	id       ID
	name     string
	notifier N
	updater  U
}

// Compose returns a Feature delegating triggering to n and data handling to u.
func Compose[N Notifier, U Updater](id ID, name string, n N, u U) *Composer[N, U] {
	return &Composer[N, U]{id: id, name: name, notifier: n, updater: u}
}

func (c *Composer[N, U]) ID() ID       { return c.id }
func (c *Composer[N, U]) Name() string { return c.name }

func (c *Composer[N, U]) StartNotifier(ctx context.Context) error {
	if err := c.notifier.Start(ctx); err != nil {
		if errors.Is(err, ErrNotifierSetup) {
			return err
		}
		return NotifierSetupError(c.name, fmt.Sprintf("%s: notifier could not be armed", c.id), err)
	}
	return nil
}

func (c *Composer[N, U]) Refresh(ctx context.Context) error { return c.updater.Update(ctx) }
func (c *Composer[N, U]) Render() string                    { return c.updater.Render() }

// Notifier returns the bound notifier.
func (c *Composer[N, U]) Notifier() N { return c.notifier }

// Close releases whatever the notifier or updater hold open. Features
// without such resources close as a no-op.
func (c *Composer[N, U]) Close() error {
	var errs []error
	if cl, ok := any(c.notifier).(io.Closer); ok {
		errs = append(errs, cl.Close())
	}
	if cl, ok := any(c.updater).(io.Closer); ok {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}
