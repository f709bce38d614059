// Package logging builds the process-wide structured logger. Grounded on
// logger/logger.go's asyncWriter + daily-rotating-file pattern, adapted
// to dispatch level through the REPL's /debug on|off toggle (spec.md
// §4.9) instead of a SIDE_LOG_LEVEL env var, and to write under
// internal/config.StateDir() instead of the teacher's sidekick state
// home.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ikigai-cli/ikigai/internal/config"
	"github.com/rs/zerolog"
)

// asyncWriter performs writes on a background goroutine so a slow sink
// (a remote log shipper, a contended disk) never blocks the loop
// goroutine that emits log lines inline with REPL processing.
type asyncWriter struct {
	ch     chan []byte
	writer io.Writer
}

func newAsyncWriter(w io.Writer, bufSize int) *asyncWriter {
	aw := &asyncWriter{ch: make(chan []byte, bufSize), writer: w}
	go aw.drain()
	return aw
}

func (aw *asyncWriter) drain() {
	for p := range aw.ch {
		aw.writer.Write(p) //nolint:errcheck
	}
}

func (aw *asyncWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	select {
	case aw.ch <- buf:
	default:
		// drop rather than block the REPL on a saturated log sink
	}
	return len(p), nil
}

var (
	once    sync.Once
	log     zerolog.Logger
	level   = zerolog.InfoLevel
	levelMu sync.Mutex
)

// Get returns the process-wide logger, initializing it on first call.
func Get() zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		var syncOutput io.Writer = consoleWriter

		if stateDir := config.StateDir(); stateDir != "" {
			if fileWriter, err := newDailyRotatingLogWriter(stateDir); err == nil {
				syncOutput = zerolog.MultiLevelWriter(consoleWriter, fileWriter)
			}
		}

		output := newAsyncWriter(syncOutput, 1024)
		log = zerolog.New(output).With().Timestamp().Logger()
	})
	return log.Level(CurrentLevel())
}

// SetDebug implements spec.md §4.9's "/debug on|off": on lowers the
// threshold to debug-level verbosity, off restores info-level.
func SetDebug(on bool) {
	levelMu.Lock()
	defer levelMu.Unlock()
	if on {
		level = zerolog.DebugLevel
	} else {
		level = zerolog.InfoLevel
	}
}

// CurrentLevel returns the level last set by SetDebug (info by default).
func CurrentLevel() zerolog.Level {
	levelMu.Lock()
	defer levelMu.Unlock()
	return level
}

const (
	logFilePrefix   = "ikigai-"
	logFileSuffix   = ".log"
	maxLogFileCount = 7
)

type dailyRotatingLogWriter struct {
	mu          sync.Mutex
	stateDir    string
	currentDate string
	file        *os.File
}

func newDailyRotatingLogWriter(stateDir string) (*dailyRotatingLogWriter, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, err
	}
	w := &dailyRotatingLogWriter{stateDir: stateDir}
	if err := w.rotateIfNeeded(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *dailyRotatingLogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateIfNeeded(); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

func (w *dailyRotatingLogWriter) rotateIfNeeded() error {
	today := time.Now().Format("2006-01-02")
	if w.currentDate == today && w.file != nil {
		return nil
	}
	if w.file != nil {
		w.file.Close()
	}

	name := logFilePrefix + today + logFileSuffix
	file, err := os.OpenFile(filepath.Join(w.stateDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = file
	w.currentDate = today
	cleanupOldLogFiles(w.stateDir)
	return nil
}

func (w *dailyRotatingLogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}

var _ io.WriteCloser = (*dailyRotatingLogWriter)(nil)

func cleanupOldLogFiles(stateDir string) {
	entries, err := os.ReadDir(stateDir)
	if err != nil {
		return
	}

	var logFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, logFilePrefix) && strings.HasSuffix(name, logFileSuffix) {
			logFiles = append(logFiles, name)
		}
	}
	if len(logFiles) <= maxLogFileCount {
		return
	}

	sort.Strings(logFiles)
	for i := 0; i < len(logFiles)-maxLogFileCount; i++ {
		os.Remove(filepath.Join(stateDir, logFiles[i]))
	}
}
