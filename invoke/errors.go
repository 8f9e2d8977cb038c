package invoke

import "fmt"

// Kind classifies an InvocationError per the error taxonomy: which
// precondition or terminal state produced it.
type Kind int

const (
	// WrongPhase means sendRequest/getResult/discardResult was called
	// out of the phase it belongs to.
	WrongPhase Kind = iota
	// NoReceiverBound means the request pass reached the end of the
	// chain without a receiver ever being bound to the context.
	NoReceiverBound
	// OneWay means a result was requested on an invocation marked
	// fire-and-forget.
	OneWay
	// Cancelled means a result was awaited on a cancelled invocation.
	Cancelled
	// Timeout means a timed get exceeded its deadline.
	Timeout
	// RemoteFailure wraps an exception raised by the transport or the
	// remote side while producing a result.
	RemoteFailure
)

func (k Kind) String() string {
	switch k {
	case WrongPhase:
		return "wrong phase"
	case NoReceiverBound:
		return "no receiver bound"
	case OneWay:
		return "one-way invocation"
	case Cancelled:
		return "cancelled"
	case Timeout:
		return "timed out"
	case RemoteFailure:
		return "remote failure"
	default:
		return "unknown"
	}
}

// InvocationError is the single error type the core raises. Cause is
// set only for RemoteFailure, where it holds the producer's original
// error.
type InvocationError struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *InvocationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invoke: %s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("invoke: %s: %s", e.Kind, e.Msg)
}

func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, invoke.ErrTimeout) style checks against the
// Kind sentinels below, independent of Msg/Cause.
func (e *InvocationError) Is(target error) bool {
	other, ok := target.(*InvocationError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newErr(kind Kind, msg string) *InvocationError {
	return &InvocationError{Kind: kind, Msg: msg}
}

func wrapErr(kind Kind, msg string, cause error) *InvocationError {
	return &InvocationError{Kind: kind, Msg: msg, Cause: cause}
}

// Sentinels for errors.Is comparisons against a Kind, ignoring Msg/Cause.
var (
	ErrWrongPhase      = &InvocationError{Kind: WrongPhase}
	ErrNoReceiverBound = &InvocationError{Kind: NoReceiverBound}
	ErrOneWay          = &InvocationError{Kind: OneWay}
	ErrCancelled       = &InvocationError{Kind: Cancelled}
	ErrTimeout         = &InvocationError{Kind: Timeout}
	ErrRemoteFailure   = &InvocationError{Kind: RemoteFailure}
)
