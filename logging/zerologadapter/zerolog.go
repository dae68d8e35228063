// Package zerologadapter backs core.Logger with rs/zerolog.
package zerologadapter

import (
	"github.com/Swind/go-coop-task/core"
	"github.com/rs/zerolog"
)

// Logger writes core.Logger calls as structured zerolog events.
type Logger struct {
	z zerolog.Logger
}

var _ core.Logger = (*Logger)(nil)

// New wraps z. Level filtering is left to z.
func New(z zerolog.Logger) *Logger {
	return &Logger{z: z}
}

func (l *Logger) Debug(msg string, fields ...core.Field) { write(l.z.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...core.Field)  { write(l.z.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...core.Field)  { write(l.z.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...core.Field) { write(l.z.Error(), msg, fields) }

// write is a no-op for a disabled level; zerolog hands back a nil event.
func write(e *zerolog.Event, msg string, fields []core.Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			e = e.AnErr(f.Key, v)
		case fmtStringer:
			e = e.Stringer(f.Key, v)
		default:
			e = e.Interface(f.Key, v)
		}
	}
	e.Msg(msg)
}

type fmtStringer interface{ String() string }
