package oracle

import (
	"errors"
	"fmt"
	"net"
)

// Kind tags an oracle invocation result.
type Kind string

const (
	KindSuccess     Kind = "success"
	KindRefused     Kind = "refused"
	KindTimedOut    Kind = "timed_out"
	KindUnavailable Kind = "unavailable"
	KindFailed      Kind = "failed"
)

// ErrUnavailable marks a backend that cannot be reached at all, as opposed to
// one that answered with an error.
var ErrUnavailable = errors.New("oracle unavailable")

// ErrEmptyResponse is returned by backends that answered with no text.
var ErrEmptyResponse = errors.New("oracle returned no text")

// Outcome is the classified result of exactly one invocation. Text is set
// for Success and Refused; Reason carries the diagnostic for the rest.
type Outcome struct {
	Kind   Kind
	Text   string
	Reason string
}

// OK reports whether the text can be used as-is.
func (o Outcome) OK() bool { return o.Kind == KindSuccess }

func (o Outcome) String() string {
	if o.Reason == "" {
		return string(o.Kind)
	}
	return string(o.Kind) + ": " + o.Reason
}

// wrapCallErr normalises transport errors from API backends. Dial failures
// mean the service is unreachable and are reported as ErrUnavailable.
func wrapCallErr(provider string, ctxErr, err error) error {
	if ctxErr != nil {
		return fmt.Errorf("%s call: %w", provider, ctxErr)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, provider, err)
	}
	return fmt.Errorf("%s call: %w", provider, err)
}
