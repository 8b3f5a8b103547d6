package heartbeat

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrorLog appends structured failure entries to logs/error_log.txt. Log never
// fails: when the file cannot be written the entry goes to the fallback
// logger instead.
type ErrorLog struct {
	dir      string
	path     string
	fallback zerolog.Logger
	now      func() time.Time
}

// NewErrorLog creates an ErrorLog for the layout in paths.
func NewErrorLog(fallback zerolog.Logger, paths Paths) *ErrorLog {
	return &ErrorLog{
		dir:      paths.LogsDir,
		path:     paths.ErrorLog,
		fallback: fallback.With().Str("component", "error-log").Logger(),
		now:      time.Now,
	}
}

// Log appends one entry for message. cause may be nil for failures that were
// detected by a check rather than returned by an operation.
func (l *ErrorLog) Log(message string, cause error) {
	defer func() {
		if r := recover(); r != nil {
			l.fallback.Error().
				Interface("panic", r).
				Str("entry", message).
				Msg("cron job error (logging failed)")
		}
	}()

	// Best effort; a failure here surfaces as an append failure below.
	_ = os.MkdirAll(l.dir, dirPerm)

	entry := FormatEntry(l.now(), "ERROR", message, cause)
	if err := appendLine(l.path, entry); err != nil {
		l.fallback.Error().
			Err(err).
			Str("entry", message).
			Msg("cron job error")
	}
}

// FormatEntry renders one single-line log entry:
//
//	[2006-01-02 15:04:05] LEVEL: message | Exception: ... | File: ... | Line: ... | Trace: ...
//
// The detail fields are present only when cause is non-nil.
func FormatEntry(at time.Time, level, message string, cause error) string {
	var b strings.Builder
	b.WriteString("[" + at.Format(TimestampLayout) + "] " + level + ": " + oneLine(message))
	if cause != nil {
		f := asFault(cause)
		b.WriteString(" | Exception: " + oneLine(f.Error()))
		b.WriteString(" | File: " + f.File)
		b.WriteString(" | Line: " + strconv.Itoa(f.Line))
		b.WriteString(" | Trace: " + f.Trace)
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

// successLine is the line printed and appended to the success log.
func successLine(at time.Time, heartbeatFile string) string {
	return fmt.Sprintf("[%s] SUCCESS: Cron job executed successfully. Timestamp written to %s",
		at.Format(TimestampLayout), heartbeatFile)
}
