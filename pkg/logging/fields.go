package logging

import "time"

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d.String()}
}

// Error records err under "error". A nil error records null.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Domain field helpers
func Component(name string) Field {
	return String("component", name)
}

func Operation(op string) Field {
	return String("op", op)
}

func Canvas(id string) Field {
	return String("canvas", id)
}

func NodeID(id string) Field {
	return String("node", id)
}

func Gesture(name string) Field {
	return String("gesture", name)
}

func Kind(name string) Field {
	return String("kind", name)
}

func Attempt(n int) Field {
	return Int("attempt", n)
}

func Count(n int) Field {
	return Int("count", n)
}

// Latency records d in fractional milliseconds.
func Latency(d time.Duration) Field {
	return Float64("latency_ms", float64(d.Microseconds())/1000)
}
