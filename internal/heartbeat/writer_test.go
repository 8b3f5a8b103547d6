package heartbeat

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

var timestampLine = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)

type recordedRun struct {
	result string
	took   time.Duration
}

type fakeObserver struct {
	mu   sync.Mutex
	runs []recordedRun
}

func (o *fakeObserver) ObserveRun(result string, took time.Duration, _ time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, recordedRun{result: result, took: took})
}

func newTestWriter(t *testing.T) (*Writer, Paths) {
	t.Helper()
	paths := NewPaths(t.TempDir())
	return NewWriter(zerolog.Nop(), paths, nil), paths
}

func fixedClock(w *Writer, at time.Time) {
	w.now = func() time.Time { return at }
	w.errLog.now = func() time.Time { return at }
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func TestWriter_Run_FreshBase(t *testing.T) {
	w, paths := newTestWriter(t)
	today := time.Now().Format("2006-01-02")

	out := w.Run()
	require.Equal(t, ResultSuccess, out.Result, out.Message)
	assert.Equal(t, 0, out.ExitCode())
	assert.NoError(t, out.Err)
	assert.NotEmpty(t, out.RunID)

	beats := readLines(t, paths.HeartbeatFile)
	require.Len(t, beats, 1)
	assert.Regexp(t, timestampLine, beats[0])
	assert.True(t, strings.HasPrefix(beats[0], today), "heartbeat %q not dated %s", beats[0], today)

	successes := readLines(t, paths.SuccessLog)
	require.Len(t, successes, 1)
	assert.Contains(t, successes[0], "SUCCESS: Cron job executed successfully")
	assert.Contains(t, successes[0], today)

	assert.Empty(t, readLines(t, paths.ErrorLog))
}

func TestWriter_Run_MessageFormat(t *testing.T) {
	w, paths := newTestWriter(t)
	at := time.Date(2026, 10, 14, 9, 5, 7, 0, time.Local)
	fixedClock(w, at)

	out := w.Run()
	require.Equal(t, ResultSuccess, out.Result)
	assert.Equal(t,
		"[2026-10-14 09:05:07] SUCCESS: Cron job executed successfully. Timestamp written to "+paths.HeartbeatFile,
		out.Message)
	assert.Equal(t, at, out.Timestamp)
	assert.Equal(t, []string{"2026-10-14 09:05:07"}, readLines(t, paths.HeartbeatFile))
	assert.Equal(t, []string{out.Message}, readLines(t, paths.SuccessLog))
}

func TestWriter_Run_ExistingDirectoriesUntouched(t *testing.T) {
	w, paths := newTestWriter(t)
	require.NoError(t, os.MkdirAll(paths.TargetDir, 0755))
	require.NoError(t, os.MkdirAll(paths.LogsDir, 0755))

	unrelated := filepath.Join(paths.TargetDir, "keep.txt")
	require.NoError(t, os.WriteFile(unrelated, []byte("keep me\n"), 0644))
	unrelatedLog := filepath.Join(paths.LogsDir, "other.log")
	require.NoError(t, os.WriteFile(unrelatedLog, []byte("other\n"), 0644))

	out := w.Run()
	require.Equal(t, ResultSuccess, out.Result, out.Message)

	data, err := os.ReadFile(unrelated)
	require.NoError(t, err)
	assert.Equal(t, "keep me\n", string(data))
	data, err = os.ReadFile(unrelatedLog)
	require.NoError(t, err)
	assert.Equal(t, "other\n", string(data))
}

func TestWriter_Run_AppendsOneLinePerRun(t *testing.T) {
	w, paths := newTestWriter(t)
	require.NoError(t, os.MkdirAll(paths.TargetDir, 0755))
	require.NoError(t, os.WriteFile(paths.HeartbeatFile, []byte("2020-01-01 00:00:00\n"), 0644))

	const runs = 5
	for i := 0; i < runs; i++ {
		out := w.Run()
		require.Equal(t, ResultSuccess, out.Result, out.Message)
	}

	beats := readLines(t, paths.HeartbeatFile)
	require.Len(t, beats, runs+1)
	assert.Equal(t, "2020-01-01 00:00:00", beats[0])
	for _, line := range beats {
		assert.Regexp(t, timestampLine, line)
	}
	assert.Len(t, readLines(t, paths.SuccessLog), runs)
}

func TestWriter_Run_SuccessLogMatchesHeartbeat(t *testing.T) {
	w, paths := newTestWriter(t)

	for i := 0; i < 3; i++ {
		require.Equal(t, ResultSuccess, w.Run().Result)
	}

	beats := readLines(t, paths.HeartbeatFile)
	successes := readLines(t, paths.SuccessLog)
	require.Len(t, successes, len(beats))
	for i, line := range successes {
		assert.True(t, strings.HasPrefix(line, "["+beats[i]+"] SUCCESS: Cron job executed successfully"), line)
	}
}

func TestWriter_Run_ErrorLogUnchangedOnSuccess(t *testing.T) {
	w, paths := newTestWriter(t)
	require.NoError(t, os.MkdirAll(paths.LogsDir, 0755))
	before := []byte("[2020-01-01 00:00:00] ERROR: an old failure\n")
	require.NoError(t, os.WriteFile(paths.ErrorLog, before, 0644))

	require.Equal(t, ResultSuccess, w.Run().Result)

	after, err := os.ReadFile(paths.ErrorLog)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestWriter_Run_NotWritable(t *testing.T) {
	w, paths := newTestWriter(t)
	w.checkWritable = func(string) error { return unix.EACCES }
	require.NoError(t, os.MkdirAll(paths.TargetDir, 0755))
	require.NoError(t, os.WriteFile(paths.HeartbeatFile, []byte("2020-01-01 00:00:00\n"), 0644))

	out := w.Run()
	assert.Equal(t, ResultError, out.Result)
	assert.Equal(t, 1, out.ExitCode())
	assert.ErrorIs(t, out.Err, ErrNotWritable)
	assert.Equal(t, "ERROR: Cron job execution failed: Directory is not writable: "+paths.TargetDir, out.Message)

	assert.Equal(t, []string{"2020-01-01 00:00:00"}, readLines(t, paths.HeartbeatFile))
	assert.Empty(t, readLines(t, paths.SuccessLog))

	entries := readLines(t, paths.ErrorLog)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "ERROR: Cron job execution failed: Directory is not writable")
	assert.NotContains(t, entries[0], "| Exception:")
}

func TestWriter_Run_NotWritable_Chmod(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permission bits")
	}
	w, paths := newTestWriter(t)
	require.NoError(t, os.MkdirAll(paths.TargetDir, 0755))
	require.NoError(t, os.Chmod(paths.TargetDir, 0555))
	t.Cleanup(func() { os.Chmod(paths.TargetDir, 0755) })

	out := w.Run()
	assert.Equal(t, 1, out.ExitCode())
	assert.Empty(t, readLines(t, paths.HeartbeatFile))

	entries := readLines(t, paths.ErrorLog)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "Directory is not writable")
}

func TestWriter_Run_TargetIsFile(t *testing.T) {
	w, paths := newTestWriter(t)
	require.NoError(t, os.WriteFile(paths.TargetDir, []byte("not a dir"), 0644))

	out := w.Run()
	assert.Equal(t, ResultError, out.Result)
	assert.ErrorIs(t, out.Err, ErrDirectoryCreate)
	assert.True(t, strings.HasPrefix(out.Message, "ERROR: Cron job execution failed: Failed to create directory: "))

	entries := readLines(t, paths.ErrorLog)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "| Exception: Failed to create directory: "+paths.TargetDir)
	assert.Contains(t, entries[0], "| File: ")
	assert.Contains(t, entries[0], "append.go")
	assert.Contains(t, entries[0], "| Trace: #0 ")
}

func TestWriter_Run_ParentIsFile(t *testing.T) {
	base := filepath.Join(t.TempDir(), "site")
	require.NoError(t, os.WriteFile(base, []byte("x"), 0644))
	paths := NewPaths(base)
	w := NewWriter(zerolog.Nop(), paths, nil)

	out := w.Run()
	assert.Equal(t, ResultError, out.Result)
	assert.ErrorIs(t, out.Err, ErrDirectoryCreate)
	assert.True(t, strings.HasPrefix(out.Message, "ERROR: "))
}

func TestWriter_Run_OpenFails(t *testing.T) {
	w, paths := newTestWriter(t)
	require.NoError(t, os.MkdirAll(paths.HeartbeatFile, 0755))

	out := w.Run()
	assert.Equal(t, ResultError, out.Result)
	assert.ErrorIs(t, out.Err, ErrFileOperation)
	assert.Contains(t, out.Message, "Failed to open file: "+paths.HeartbeatFile)
	assert.Empty(t, readLines(t, paths.SuccessLog))

	entries := readLines(t, paths.ErrorLog)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "| Exception: Failed to open file: ")
}

func TestWriter_Run_PanicIsFatal(t *testing.T) {
	w, paths := newTestWriter(t)
	w.checkWritable = func(string) error { panic("probe exploded") }

	var out Outcome
	require.NotPanics(t, func() { out = w.Run() })
	assert.Equal(t, ResultFatal, out.Result)
	assert.Equal(t, 1, out.ExitCode())
	assert.ErrorIs(t, out.Err, ErrUnexpected)
	assert.Equal(t, "FATAL ERROR: Fatal error in cron job: probe exploded", out.Message)
	assert.Empty(t, readLines(t, paths.HeartbeatFile))

	entries := readLines(t, paths.ErrorLog)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "ERROR: Fatal error in cron job: probe exploded")
	assert.Contains(t, entries[0], "| Exception: panic: probe exploded")
	assert.Contains(t, entries[0], "writer_test.go")
}

func TestWriter_Run_SuccessLogFailureTolerated(t *testing.T) {
	var buf bytes.Buffer
	paths := NewPaths(t.TempDir())
	w := NewWriter(zerolog.New(&buf), paths, nil)
	require.NoError(t, os.WriteFile(paths.LogsDir, []byte("not a dir"), 0644))

	out := w.Run()
	assert.Equal(t, ResultSuccess, out.Result)
	assert.Len(t, readLines(t, paths.HeartbeatFile), 1)
	assert.Contains(t, buf.String(), "failed to write success log")
}

func TestWriter_Run_ErrorLogFallback(t *testing.T) {
	var buf bytes.Buffer
	paths := NewPaths(t.TempDir())
	w := NewWriter(zerolog.New(&buf), paths, nil)
	w.checkWritable = func(string) error { return unix.EROFS }
	require.NoError(t, os.WriteFile(paths.LogsDir, []byte("not a dir"), 0644))

	var out Outcome
	require.NotPanics(t, func() { out = w.Run() })
	assert.Equal(t, 1, out.ExitCode())
	assert.Contains(t, buf.String(), "Directory is not writable")
	assert.Contains(t, buf.String(), `"component":"error-log"`)
}

func TestWriter_Run_Observer(t *testing.T) {
	paths := NewPaths(t.TempDir())
	obs := &fakeObserver{}
	w := NewWriter(zerolog.Nop(), paths, obs)

	w.Run()
	w.checkWritable = func(string) error { return unix.EACCES }
	w.Run()
	w.checkWritable = func(string) error { panic("boom") }
	w.Run()

	require.Len(t, obs.runs, 3)
	assert.Equal(t, "success", obs.runs[0].result)
	assert.Equal(t, "error", obs.runs[1].result)
	assert.Equal(t, "fatal", obs.runs[2].result)
}

func TestWriter_Run_Concurrent(t *testing.T) {
	paths := NewPaths(t.TempDir())

	const runs = 16
	var wg sync.WaitGroup
	results := make([]Outcome, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// One Writer per goroutine, as each invocation is its own process.
			results[i] = NewWriter(zerolog.Nop(), paths, nil).Run()
		}(i)
	}
	wg.Wait()

	for _, out := range results {
		require.Equal(t, ResultSuccess, out.Result, out.Message)
	}
	beats := readLines(t, paths.HeartbeatFile)
	require.Len(t, beats, runs)
	for _, line := range beats {
		assert.Regexp(t, timestampLine, line)
	}
	assert.Len(t, readLines(t, paths.SuccessLog), runs)
	assert.Empty(t, readLines(t, paths.ErrorLog))
}

func TestWriter_Ready(t *testing.T) {
	w, paths := newTestWriter(t)
	assert.NoError(t, w.Ready(), "absent target with writable base")

	require.NoError(t, os.MkdirAll(paths.TargetDir, 0755))
	assert.NoError(t, w.Ready())

	w.checkWritable = func(string) error { return unix.EACCES }
	err := w.Ready()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotWritable)
	assert.NoFileExists(t, paths.HeartbeatFile)
}

func TestWriter_Ready_TargetIsFile(t *testing.T) {
	w, paths := newTestWriter(t)
	require.NoError(t, os.WriteFile(paths.TargetDir, nil, 0644))

	err := w.Ready()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
