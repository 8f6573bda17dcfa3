package logging

import "time"

// Timer measures one operation and logs it with its latency.
type Timer struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}

// StartTimer begins timing msg.
func StartTimer(logger Logger, msg string, fields ...Field) *Timer {
	return &Timer{logger: logger, msg: msg, start: time.Now(), fields: fields}
}

// Elapsed returns the time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// End logs the operation at debug level.
func (t *Timer) End(fields ...Field) time.Duration {
	d := t.Elapsed()
	t.logger.Debug(t.msg, t.with(d, fields)...)
	return d
}

// EndError logs at warn level when err is non-nil, otherwise like End.
func (t *Timer) EndError(err error, fields ...Field) time.Duration {
	if err == nil {
		return t.End(fields...)
	}
	d := t.Elapsed()
	t.logger.Warn(t.msg, append(t.with(d, fields), Error(err))...)
	return d
}

func (t *Timer) with(d time.Duration, extra []Field) []Field {
	out := make([]Field, 0, len(t.fields)+len(extra)+1)
	out = append(out, t.fields...)
	out = append(out, extra...)
	return append(out, Latency(d))
}
