package core

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// SetupLogging tees the std logger and gin's writers to stdout and
// cfg.LogDir/filename. Each line carries the binary name ("api: ",
// "sweeper: ") taken from filename. Close the returned io.Closer on shutdown.
func SetupLogging(cfg Config, filename string) (io.Closer, error) {
	dir := firstNonEmpty(cfg.LogDir, "./log")
	filename = firstNonEmpty(filename, "ecohabit.log")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	mw := io.MultiWriter(os.Stdout, f)
	log.SetOutput(mw)
	log.SetPrefix(logPrefix(filename))
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lmsgprefix)
	gin.DefaultWriter = mw
	gin.DefaultErrorWriter = mw

	return f, nil
}

// logPrefix turns "sweeper.log" into "sweeper: ".
func logPrefix(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)) + ": "
}
