package main

import (
	"fmt"
	"io"

	"github.com/Swind/go-coop-task/core"
	"github.com/Swind/go-coop-task/logging/logrusadapter"
	"github.com/Swind/go-coop-task/logging/zerologadapter"
	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
)

// newLogger builds the scheduler logger selected by --log-format.
func newLogger(format, level string, w io.Writer) (core.Logger, error) {
	lvl, err := core.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}

	switch format {
	case "text", "":
		return core.NewDefaultLoggerWithLevel(w, lvl), nil
	case "json":
		z := zerolog.New(w).With().Timestamp().Logger().Level(zerologLevel(lvl))
		return zerologadapter.New(z), nil
	case "console":
		z := zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
			With().Timestamp().Logger().Level(zerologLevel(lvl))
		return zerologadapter.New(z), nil
	case "logrus":
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(logrusLevel(lvl))
		return logrusadapter.New(l), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func zerologLevel(l core.LogLevel) zerolog.Level {
	switch l {
	case core.LevelDebug:
		return zerolog.DebugLevel
	case core.LevelWarn:
		return zerolog.WarnLevel
	case core.LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func logrusLevel(l core.LogLevel) logrus.Level {
	switch l {
	case core.LevelDebug:
		return logrus.DebugLevel
	case core.LevelWarn:
		return logrus.WarnLevel
	case core.LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
