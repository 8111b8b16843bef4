package test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-kit/log"
)

var _ log.Logger = (*TestingLogger)(nil)

// TestingLogger logs to t and keeps every entry so tests can assert on what
// was logged.
type TestingLogger struct {
	t    testing.TB
	mtx  sync.Mutex
	done atomic.Bool

	entries []map[string]string
}

func NewTestingLogger(t testing.TB) *TestingLogger {
	logger := &TestingLogger{t: t}
	t.Cleanup(func() {
		logger.done.Store(true)
	})
	return logger
}

func (l *TestingLogger) Log(keyvals ...interface{}) error {
	entry := make(map[string]string, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		entry[fmt.Sprint(keyvals[i])] = fmt.Sprint(keyvals[i+1])
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.entries = append(l.entries, entry)

	// t.Log panics once the test has finished.
	if !l.done.Load() {
		l.t.Log(keyvals...)
	}
	return nil
}

// Entries returns the logged entries whose key equals value, or every entry
// when key is empty.
func (l *TestingLogger) Entries(key, value string) []map[string]string {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	var out []map[string]string
	for _, e := range l.entries {
		if key == "" || e[key] == value {
			out = append(out, e)
		}
	}
	return out
}
