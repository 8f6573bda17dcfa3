package logging

import (
	"bytes"
	"io"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// JSONLogger writes one JSON object per line. Fields are flattened into the
// top level after time, level and msg.
type JSONLogger struct {
	out    *syncWriter
	level  *levelVar
	fields []Field
	now    func() time.Time
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

type levelVar struct {
	mu sync.RWMutex
	l  Level
}

// NewJSONLogger creates a logger writing to w at the given minimum level.
func NewJSONLogger(w io.Writer, level Level) *JSONLogger {
	return &JSONLogger{
		out:   &syncWriter{w: w},
		level: &levelVar{l: level},
		now:   time.Now,
	}
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// With returns a child sharing the writer and level of l.
func (l *JSONLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &JSONLogger{out: l.out, level: l.level, fields: merged, now: l.now}
}

// SetLevel changes the level for l and every logger derived from it.
func (l *JSONLogger) SetLevel(level Level) {
	l.level.mu.Lock()
	l.level.l = level
	l.level.mu.Unlock()
}

func (l *JSONLogger) GetLevel() Level {
	l.level.mu.RLock()
	defer l.level.mu.RUnlock()
	return l.level.l
}

func (l *JSONLogger) log(level Level, msg string, fields []Field) {
	if level < l.GetLevel() {
		return
	}

	var buf bytes.Buffer
	buf.WriteString(`{"time":`)
	writeValue(&buf, l.now().UTC().Format(time.RFC3339Nano))
	buf.WriteString(`,"level":`)
	writeValue(&buf, level.String())
	buf.WriteString(`,"msg":`)
	writeValue(&buf, msg)

	// later fields override earlier ones with the same key
	seen := make(map[string]int, len(l.fields)+len(fields))
	all := make([]Field, 0, len(l.fields)+len(fields))
	for _, f := range append(append([]Field(nil), l.fields...), fields...) {
		if i, ok := seen[f.Key]; ok {
			all[i] = f
			continue
		}
		seen[f.Key] = len(all)
		all = append(all, f)
	}
	for _, f := range all {
		switch f.Key {
		case "time", "level", "msg":
			continue
		}
		buf.WriteByte(',')
		writeValue(&buf, f.Key)
		buf.WriteByte(':')
		writeValue(&buf, f.Value)
	}
	buf.WriteString("}\n")

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.w.Write(buf.Bytes())
}

func writeValue(buf *bytes.Buffer, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(err.Error())
	}
	buf.Write(b)
}
