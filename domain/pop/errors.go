package pop

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the reasons a submission can be rejected.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindLowEntropy
	KindInvalidPlayer
	KindOverflow
)

var kindNames = map[ErrorKind]string{
	KindNone:          "none",
	KindLowEntropy:    "low-entropy",
	KindInvalidPlayer: "invalid-player",
	KindOverflow:      "overflow",
}

// String returns the static reason text used in outcome records.
func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseErrorKind is the inverse of String.
func ParseErrorKind(s string) (ErrorKind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return KindNone, false
}

// Error is a rejected submission.
type Error struct {
	Kind ErrorKind
}

func (e *Error) Error() string { return "pop: " + e.Kind.String() }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrLowEntropy    = &Error{Kind: KindLowEntropy}
	ErrInvalidPlayer = &Error{Kind: KindInvalidPlayer}
	ErrOverflow      = &Error{Kind: KindOverflow}
)

// KindOf returns the kind of a rejection, or KindNone if err is not one.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

func (k ErrorKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ErrorKind) UnmarshalText(b []byte) error {
	parsed, ok := ParseErrorKind(string(b))
	if !ok {
		return fmt.Errorf("unknown error kind %q", b)
	}
	*k = parsed
	return nil
}
