package feature

import (
	"context"
	"io"
)

// Source fetches the current value of a feature's Data or fails.
type Source[D any] interface {
	Fetch(ctx context.Context) (D, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[D any] func(ctx context.Context) (D, error)

func (f SourceFunc[D]) Fetch(ctx context.Context) (D, error) { return f(ctx) }

// DataUpdater is the Updater every feature kind uses: it owns one D, replaces
// it on a successful fetch and keeps it on failure.
type DataUpdater[D any] struct {
	name        string
	src         Source[D]
	format      func(D) string
	placeholder string

	data  D
	valid bool

	// onUpdate runs after a successful replacement.
	onUpdate func(D)
}

// UpdaterOption customizes a DataUpdater.
type UpdaterOption[D any] func(*DataUpdater[D])

// WithPlaceholder sets the text rendered before the first successful fetch.
func WithPlaceholder[D any](s string) UpdaterOption[D] {
	return func(u *DataUpdater[D]) { u.placeholder = s }
}

// WithOnUpdate registers a hook called with each newly stored value.
func WithOnUpdate[D any](fn func(D)) UpdaterOption[D] {
	return func(u *DataUpdater[D]) { u.onUpdate = fn }
}

// NewUpdater returns an updater for the named feature kind.
func NewUpdater[D any](name string, src Source[D], format func(D) string, opts ...UpdaterOption[D]) *DataUpdater[D] {
	u := &DataUpdater[D]{name: name, src: src, format: format}
	for _, o := range opts {
		o(u)
	}
	return u
}

func (u *DataUpdater[D]) Update(ctx context.Context) error {
	d, err := u.src.Fetch(ctx)
	if err != nil {
		return RefreshError(u.name, "source unavailable", err)
	}
	u.data = d
	u.valid = true
	if u.onUpdate != nil {
		u.onUpdate(d)
	}
	return nil
}

func (u *DataUpdater[D]) Render() string {
	if !u.valid {
		return u.placeholder
	}
	return u.format(u.data)
}

// Data returns the stored value and whether a fetch has succeeded yet.
func (u *DataUpdater[D]) Data() (D, bool) { return u.data, u.valid }

// Close releases the source when it holds a connection open.
func (u *DataUpdater[D]) Close() error {
	if c, ok := u.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
