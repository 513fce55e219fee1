package tlogger

import (
	"io"
	"os"
	"runtime/debug"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Log is the process wide logger, every nvgtbuild command logs through it
var Log log.Logger

var hlog log.Logger

var base log.Logger

// ApplyLogLevel sets the minimum logging level, only the first call has an effect
var ApplyLogLevel func(string)

func init() {
	SetOutput(os.Stderr)
}

// SetOutput points the logger at w and resets the level filter.
func SetOutput(w io.Writer) {
	base = log.NewLogfmtLogger(log.NewSyncWriter(w))
	hlog = log.With(base, "ts", log.DefaultTimestampUTC, "caller", log.Caller(6))
	Log = log.With(base, "ts", log.DefaultTimestampUTC, "caller", log.Caller(5))

	ApplyLogLevel = func(lvl string) {
		var opt level.Option
		switch lvl {
		case "debug":
			opt = level.AllowDebug()
		case "warn":
			opt = level.AllowWarn()
		case "error":
			opt = level.AllowError()
		case "all":
			opt = level.AllowAll()
		default:
			opt = level.AllowInfo()
		}
		Log = level.NewFilter(Log, opt)
		hlog = level.NewFilter(hlog, opt)
		ApplyLogLevel = func(string) {}
	}
}

// Debug add a log entry w/ Debug level
func Debug(keyvals ...interface{}) {
	level.Debug(hlog).Log(keyvals...)
}

// Info add a log entry w/ Info level
func Info(keyvals ...interface{}) {
	level.Info(hlog).Log(keyvals...)
}

// Warn add a log entry w/ Warn level
func Warn(keyvals ...interface{}) {
	level.Warn(hlog).Log(keyvals...)
}

// Error add a log entry w/ Error level
func Error(keyvals ...interface{}) {
	level.Error(hlog).Log(keyvals...)
}

// Fatal add a log entry w/ Error level and exits
func Fatal(keyvals ...interface{}) {
	debug.PrintStack()
	level.Error(hlog).Log(keyvals...)
	os.Exit(1)
}

// FatalIf logs err and exits when err != nil
func FatalIf(err error) {
	if err == nil {
		return
	}
	level.Error(hlog).Log("err", err)
	os.Exit(1)
}
