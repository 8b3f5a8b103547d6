package heartbeat

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// ensureDir creates dir and any missing parents. An existing directory is
// left untouched.
func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return newFault(ErrDirectoryCreate, "Failed to create directory: "+dir,
			fmt.Errorf("%s exists and is not a directory", dir))
	case !errors.Is(err, fs.ErrNotExist):
		return newFault(ErrDirectoryCreate, "Failed to create directory: "+dir, err)
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return newFault(ErrDirectoryCreate, "Failed to create directory: "+dir, err)
	}
	return nil
}

// writable reports whether the current process may write into dir.
func writable(dir string) error {
	return unix.Access(dir, unix.W_OK)
}

// appendLine appends line and a newline to path under an exclusive flock,
// creating the file if needed. The lock covers the single write only and the
// descriptor is closed on every return path.
func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return newFault(ErrFileOperation, "Failed to open file: "+path, err)
	}
	fd := int(f.Fd())

	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		f.Close()
		return newFault(ErrFileOperation, "Failed to lock file: "+path, err)
	}

	if _, err := f.WriteString(line + "\n"); err != nil {
		unix.Flock(fd, unix.LOCK_UN)
		f.Close()
		return newFault(ErrFileOperation, "Failed to write to file: "+path, err)
	}

	unix.Flock(fd, unix.LOCK_UN)
	if err := f.Close(); err != nil {
		return newFault(ErrFileOperation, "Failed to write to file: "+path, err)
	}
	return nil
}
