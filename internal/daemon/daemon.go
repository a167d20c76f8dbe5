// Package daemon holds the small process-lifecycle helpers the binary uses
// around serving: pid-file management and working-directory changes.
package daemon

import (
	"fmt"
	"os"
	"strconv"

	"github.com/benignx/nfsmirror/internal/logger"
)

// WritePidFile writes the current process id to path. It fails if the file
// already exists, so a stale instance is noticed instead of clobbered.
func WritePidFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create pid file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(strconv.Itoa(os.Getpid()) + "\n"); err != nil {
		return fmt.Errorf("write pid file %s: %w", path, err)
	}
	logger.Debug("Wrote pid file %s", path)
	return nil
}

// RemovePidFile deletes the pid file. A missing file is not an error; the
// point is to leave nothing behind.
func RemovePidFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove pid file %s: %v", path, err)
	}
}

// ChangeWorkDir moves the process into dir before serving.
func ChangeWorkDir(dir string) error {
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("change working directory to %s: %w", dir, err)
	}
	logger.Debug("Changed working directory to %s", dir)
	return nil
}
