// ABOUTME: Operator-facing activity trace of one submission
// ABOUTME: Timestamped, strictly ordered lines mirrored to the structured logger
package submit

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Entry struct {
	At      time.Time `json:"at"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %-5s %s", e.At.Format("15:04:05.000"), e.Level, e.Message)
}

// Trace collects entries in the order they are recorded. A sink, when set, sees each
// entry as it is added.
type Trace struct {
	mu      sync.Mutex
	entries []Entry
	sink    func(Entry)
	log     *zap.Logger
	now     func() time.Time
}

// NewTrace creates a trace. Both arguments may be nil.
func NewTrace(logger *zap.Logger, sink func(Entry)) *Trace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trace{sink: sink, log: logger, now: time.Now}
}

func (t *Trace) add(level Level, format string, args ...any) {
	entry := Entry{Level: level, Message: fmt.Sprintf(format, args...)}

	t.mu.Lock()
	entry.At = t.now()
	t.entries = append(t.entries, entry)
	sink := t.sink
	t.mu.Unlock()

	t.log.Debug("trace", zap.String("level", string(level)), zap.String("message", entry.Message))
	if sink != nil {
		sink(entry)
	}
}

func (t *Trace) Infof(format string, args ...any)  { t.add(LevelInfo, format, args...) }
func (t *Trace) Warnf(format string, args ...any)  { t.add(LevelWarn, format, args...) }
func (t *Trace) Errorf(format string, args ...any) { t.add(LevelError, format, args...) }

// Entries returns a copy of the recorded entries.
func (t *Trace) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// Warnings returns the messages of warn-level entries.
func (t *Trace) Warnings() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, e := range t.entries {
		if e.Level == LevelWarn {
			out = append(out, e.Message)
		}
	}
	return out
}
