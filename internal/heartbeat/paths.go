package heartbeat

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	TargetDirName     = "cron"
	LogsDirName       = "logs"
	HeartbeatFileName = "cron_test.txt"
	SuccessLogName    = "success_log.txt"
	ErrorLogName      = "error_log.txt"

	// TimestampLayout is YYYY-MM-DD HH:MM:SS.
	TimestampLayout = "2006-01-02 15:04:05"

	dirPerm  os.FileMode = 0777
	filePerm os.FileMode = 0666
)

// Paths is the fixed file layout under a base directory.
type Paths struct {
	Base          string
	TargetDir     string
	LogsDir       string
	HeartbeatFile string
	SuccessLog    string
	ErrorLog      string
}

// NewPaths derives the layout from base. base is never taken from user input.
func NewPaths(base string) Paths {
	target := filepath.Join(base, TargetDirName)
	logs := filepath.Join(base, LogsDirName)
	return Paths{
		Base:          base,
		TargetDir:     target,
		LogsDir:       logs,
		HeartbeatFile: filepath.Join(target, HeartbeatFileName),
		SuccessLog:    filepath.Join(logs, SuccessLogName),
		ErrorLog:      filepath.Join(logs, ErrorLogName),
	}
}

// InstallDir returns the directory holding the running executable, with
// symlinks resolved. It is the base path for both the command and the server.
func InstallDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve executable %s: %w", exe, err)
	}
	return filepath.Dir(resolved), nil
}
