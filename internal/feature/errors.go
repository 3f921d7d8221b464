package feature

import (
	"errors"
	"strings"
)

// Error kinds. Every error leaving the engine wraps exactly one of them.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrConstruction  = errors.New("feature construction error")
	ErrNotifierSetup = errors.New("notifier setup error")
	ErrRefresh       = errors.New("refresh error")
	ErrProtocol      = errors.New("protocol error")
)

// Error carries a kind, the component it came from, a human description and
// the underlying cause.
type Error struct {
	Kind        error
	Name        string
	Description string
	Cause       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Name)
	b.WriteString(": ")
	b.WriteString(e.Description)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newError(kind error, name, desc string, cause error) error {
	return &Error{Kind: kind, Name: name, Description: desc, Cause: cause}
}

func ConfigurationError(name, desc string, cause error) error {
	return newError(ErrConfiguration, name, desc, cause)
}

func ConstructionError(name, desc string, cause error) error {
	return newError(ErrConstruction, name, desc, cause)
}

func NotifierSetupError(name, desc string, cause error) error {
	return newError(ErrNotifierSetup, name, desc, cause)
}

func RefreshError(name, desc string, cause error) error {
	return newError(ErrRefresh, name, desc, cause)
}

func ProtocolError(name, desc string, cause error) error {
	return newError(ErrProtocol, name, desc, cause)
}

// KindOf returns the kind sentinel wrapped by err, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrConfiguration, ErrConstruction, ErrNotifierSetup, ErrRefresh, ErrProtocol} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
