package scheduler

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newComponentLogger writes to stdout and a rotating file under data/ (or
// /data in containers). Falls back to stdout only when no directory is
// writable.
func newComponentLogger(prefix string) *log.Logger {
	flags := log.LstdFlags | log.Lmicroseconds | log.LUTC

	for _, dir := range []string{"data", "/data"} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(dir, "orchestrator.log"),
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		return log.New(io.MultiWriter(os.Stdout, rotator), prefix+" ", flags)
	}

	return log.New(os.Stdout, prefix+" ", flags)
}
