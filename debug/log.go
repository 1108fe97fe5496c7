package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

var (
	file    *os.File
	mu      sync.Mutex
	enabled bool
	logger  *charmlog.Logger
)

// Enable starts debug logging to ~/.config/midigate/debug.log
func Enable() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return EnableAt(filepath.Join(homeDir, ".config", "midigate", "debug.log"))
}

// EnableAt starts debug logging to path, truncating it.
func EnableAt(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	file = f
	start(f)
	logger.Info("=== Debug logging started ===")
	return nil
}

// UseWriter logs to w instead of a file (headless mode logs to stderr).
func UseWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	closeFile()
	start(w)
}

func start(w io.Writer) {
	logger = charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Level:           charmlog.DebugLevel,
		Prefix:          "midigate",
	})
	enabled = true
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	closeFile()
	logger = nil
	enabled = false
}

func closeFile() {
	if file != nil {
		file.Close()
		file = nil
	}
}

// Enabled reports whether logging is on.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Log writes a message to the debug log
func Log(category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || logger == nil {
		return
	}
	logger.Debug(fmt.Sprintf(format, args...), "cat", category)
	flush()
}

// Event writes a structured message: keyvals alternate key, value.
func Event(category, msg string, keyvals ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || logger == nil {
		return
	}
	logger.Info(msg, append([]any{"cat", category}, keyvals...)...)
	flush()
}

// Error logs a failure with its error value.
func Error(category, msg string, err error, keyvals ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || logger == nil {
		return
	}
	logger.Error(msg, append([]any{"cat", category, "err", err}, keyvals...)...)
	flush()
}

// flush immediately so we see logs even on crash
func flush() {
	if file != nil {
		file.Sync()
	}
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if n <= 1 || count%n == 1 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
