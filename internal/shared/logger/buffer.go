package logger

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

const defaultBufferSize = 1000

// LogEntry はリングバッファに保持する1件分のログ
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogBuffer は直近のログを固定長で保持する
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	full    bool
}

var (
	bufferOnce sync.Once
	buffer     *LogBuffer
)

// NewLogBuffer creates a ring buffer holding at most size entries.
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &LogBuffer{entries: make([]LogEntry, size)}
}

// GetLogBuffer はプロセス共通のログバッファを返す
func GetLogBuffer() *LogBuffer {
	bufferOnce.Do(func() {
		buffer = NewLogBuffer(defaultBufferSize)
	})
	return buffer
}

// Add appends an entry, overwriting the oldest one when full.
func (b *LogBuffer) Add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = entry
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// GetRecent returns up to limit entries, oldest first.
func (b *LogBuffer) GetRecent(limit int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := b.next
	if b.full {
		count = len(b.entries)
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	result := make([]LogEntry, 0, limit)
	start := b.next - limit
	for i := 0; i < limit; i++ {
		idx := (start + i + len(b.entries)) % len(b.entries)
		result = append(result, b.entries[idx])
	}
	return result
}

// Clear drops every buffered entry.
func (b *LogBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make([]LogEntry, len(b.entries))
	b.next = 0
	b.full = false
}

// ToJSON はバッファ全体をJSONで返す
func (b *LogBuffer) ToJSON() ([]byte, error) {
	return json.MarshalIndent(b.GetRecent(0), "", "  ")
}

// ToText はバッファ全体を1行1件のテキストで返す
func (b *LogBuffer) ToText() string {
	var sb strings.Builder
	for _, e := range b.GetRecent(0) {
		fmt.Fprintf(&sb, "%s [%s] %s", e.Timestamp.Format(time.RFC3339), strings.ToUpper(e.Level), e.Message)
		for k, v := range e.Fields {
			fmt.Fprintf(&sb, " %s=%v", k, v)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// bufferCore mirrors log entries into a LogBuffer.
type bufferCore struct {
	zapcore.LevelEnabler
	buf    *LogBuffer
	fields []zapcore.Field
}

func newBufferCore(buf *LogBuffer, level zapcore.LevelEnabler) zapcore.Core {
	return &bufferCore{LevelEnabler: level, buf: buf}
}

func (c *bufferCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field{}, c.fields...), fields...)
	return &clone
}

func (c *bufferCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *bufferCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	c.buf.Add(LogEntry{
		Timestamp: ent.Time,
		Level:     ent.Level.String(),
		Message:   ent.Message,
		Fields:    enc.Fields,
	})
	return nil
}

func (c *bufferCore) Sync() error { return nil }
