// Package heartbeat appends a timestamp line to cron/cron_test.txt on every
// invocation so an operator can confirm that an external scheduler fires.
package heartbeat

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Result classifies a run.
type Result string

const (
	ResultSuccess Result = "success"
	ResultError   Result = "error"
	ResultFatal   Result = "fatal"
)

// Observer receives one call per finished run.
type Observer interface {
	ObserveRun(result string, took time.Duration, at time.Time)
}

// Outcome is what a run reports back to its caller.
type Outcome struct {
	RunID     string
	Result    Result
	Timestamp time.Time
	// Message is the single user-facing line for stdout or an HTTP body.
	Message string
	Err     error
}

// ExitCode is 0 on success and 1 otherwise.
func (o Outcome) ExitCode() int {
	if o.Result == ResultSuccess {
		return 0
	}
	return 1
}

// Writer performs the heartbeat sequence: ensure the target directory, check
// it is writable, append the timestamp under lock, record the outcome.
type Writer struct {
	logger   zerolog.Logger
	paths    Paths
	errLog   *ErrorLog
	observer Observer

	now           func() time.Time
	checkWritable func(dir string) error
	newRunID      func() string
}

// NewWriter creates a Writer for paths. observer may be nil.
func NewWriter(logger zerolog.Logger, paths Paths, observer Observer) *Writer {
	return &Writer{
		logger:        logger.With().Str("component", "heartbeat").Logger(),
		paths:         paths,
		errLog:        NewErrorLog(logger, paths),
		observer:      observer,
		now:           time.Now,
		checkWritable: writable,
		newRunID:      uuid.NewString,
	}
}

// Paths returns the layout the Writer operates on.
func (w *Writer) Paths() Paths {
	return w.paths
}

// Run executes one heartbeat. It never panics; every failure is reported in
// the returned Outcome and in exactly one error log entry.
func (w *Writer) Run() (out Outcome) {
	start := time.Now()
	out.RunID = w.newRunID()
	logger := w.logger.With().Str("run_id", out.RunID).Logger()

	defer func() {
		if r := recover(); r != nil {
			f := faultFromPanic(r)
			out = w.fail(out, ResultFatal, "Fatal error in cron job: "+f.Cause.Error(), f)
		}

		ev := logger.Info()
		if out.Result != ResultSuccess {
			ev = logger.Error().Err(out.Err)
		}
		ev.Str("result", string(out.Result)).
			Dur("duration", time.Since(start)).
			Msg("heartbeat run finished")

		if w.observer != nil {
			w.observer.ObserveRun(string(out.Result), time.Since(start), w.now())
		}
	}()

	at, err := w.beat(logger)
	if err != nil {
		return w.fail(out, ResultError, "Cron job execution failed: "+err.Error(), err)
	}

	line := successLine(at, w.paths.HeartbeatFile)
	w.recordSuccess(logger, line)

	out.Result = ResultSuccess
	out.Timestamp = at
	out.Message = line
	return out
}

// Ready reports whether a run could write right now, without writing. An
// absent target directory is ready when its parent is writable.
func (w *Writer) Ready() error {
	dir := w.paths.TargetDir
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		dir = w.paths.Base
	case err != nil:
		return fmt.Errorf("stat %s: %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", dir)
	}
	if err := w.checkWritable(dir); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, dir, err)
	}
	return nil
}

func (w *Writer) beat(logger zerolog.Logger) (time.Time, error) {
	dir := w.paths.TargetDir
	if err := ensureDir(dir); err != nil {
		return time.Time{}, err
	}

	if err := w.checkWritable(dir); err != nil {
		logger.Debug().Err(err).Str("dir", dir).Msg("writability probe failed")
		return time.Time{}, newFault(ErrNotWritable, "Directory is not writable: "+dir, nil)
	}

	at := w.now()
	if err := appendLine(w.paths.HeartbeatFile, at.Format(TimestampLayout)); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

// recordSuccess is best effort; a failure never changes the run result.
func (w *Writer) recordSuccess(logger zerolog.Logger, line string) {
	_ = os.MkdirAll(w.paths.LogsDir, dirPerm)
	if err := appendLine(w.paths.SuccessLog, line); err != nil {
		logger.Warn().Err(err).Str("path", w.paths.SuccessLog).Msg("failed to write success log")
	}
}

func (w *Writer) fail(out Outcome, result Result, message string, err error) Outcome {
	// Check failures carry no cause and so no exception detail.
	var cause error = err
	var f *Fault
	if errors.As(err, &f) && f.Cause == nil {
		cause = nil
	}
	w.errLog.Log(message, cause)

	prefix := "ERROR: "
	if result == ResultFatal {
		prefix = "FATAL ERROR: "
	}
	out.Result = result
	out.Message = prefix + message
	out.Err = err
	return out
}
