package log

import (
	"io"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	dslog "github.com/grafana/dskit/log"
)

// Logger is the process wide logger used by the command line tools.
var Logger = kitlog.NewNopLogger()

// InitLogger initialises the global gokit logger writing to stderr and returns
// that logger.
func InitLogger(logFormat string, logLevel dslog.Level) kitlog.Logger {
	Logger = NewLogger(os.Stderr, logFormat, logLevel)
	return Logger
}

// NewLogger returns a logger writing logfmt or json lines to w.
func NewLogger(w io.Writer, logFormat string, logLevel dslog.Level) kitlog.Logger {
	logger := dslog.NewGoKitWithWriter(logFormat, kitlog.NewSyncWriter(w))

	// use UTC timestamps and skip 5 stack frames.
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC, "caller", kitlog.Caller(5))

	// Must put the level filter last for efficiency.
	if logLevel.Option != nil {
		logger = level.NewFilter(logger, logLevel.Option)
	}
	return logger
}

// ParseLevel parses a level name such as "info" or "debug".
func ParseLevel(s string) (dslog.Level, error) {
	var l dslog.Level
	err := l.Set(s)
	return l, err
}
