package heartbeat

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Failure kinds. Every error returned by a Writer step wraps one of these.
var (
	ErrDirectoryCreate = errors.New("directory creation failed")
	ErrNotWritable     = errors.New("directory not writable")
	ErrFileOperation   = errors.New("file operation failed")
	ErrUnexpected      = errors.New("unexpected fault")
)

const maxTraceFrames = 32

// Fault is a failure with the diagnostic detail written to the error log:
// where it originated and the call stack at that point.
type Fault struct {
	Kind  error
	Msg   string
	Cause error
	File  string
	Line  int
	Trace string
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return f.Msg + ": " + f.Cause.Error()
	}
	return f.Msg
}

func (f *Fault) Unwrap() []error {
	if f.Cause == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Cause}
}

// newFault records the caller of newFault as the origin.
func newFault(kind error, msg string, cause error) *Fault {
	f := &Fault{Kind: kind, Msg: msg, Cause: cause}
	f.capture(3, false)
	return f
}

// faultFromPanic must be called from the deferred function that recovered r.
// The origin is the first frame below the panic.
func faultFromPanic(r any) *Fault {
	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("%v", r)
	}
	f := &Fault{Kind: ErrUnexpected, Msg: "panic", Cause: cause}
	f.capture(3, true)
	return f
}

// asFault returns err's Fault, or wraps err in one originating at the caller.
func asFault(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	f = &Fault{Kind: ErrUnexpected, Msg: err.Error()}
	f.capture(3, false)
	return f
}

func (f *Fault) capture(skip int, afterPanic bool) {
	pcs := make([]uintptr, maxTraceFrames)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	seenPanic := !afterPanic
	i := 0
	for {
		fr, more := frames.Next()
		switch {
		case !seenPanic:
			seenPanic = fr.Function == "runtime.gopanic"
		case strings.HasPrefix(fr.Function, "runtime."):
		default:
			if i == 0 {
				f.File, f.Line = fr.File, fr.Line
			} else {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "#%d %s(%d): %s", i, fr.File, fr.Line, fr.Function)
			i++
		}
		if !more {
			break
		}
	}
	f.Trace = b.String()
}
