// Package logrusadapter backs core.Logger with sirupsen/logrus.
package logrusadapter

import (
	"github.com/Swind/go-coop-task/core"
	"github.com/sirupsen/logrus"
)

// Logger writes core.Logger calls as logrus entries.
type Logger struct {
	logrus.FieldLogger
}

var _ core.Logger = Logger{}

// New wraps l, which may be a *logrus.Logger or a *logrus.Entry carrying
// fields shared by every message.
func New(l logrus.FieldLogger) Logger {
	return Logger{FieldLogger: l}
}

func (x Logger) Debug(msg string, fields ...core.Field) { x.with(fields).Debug(msg) }
func (x Logger) Info(msg string, fields ...core.Field)  { x.with(fields).Info(msg) }
func (x Logger) Warn(msg string, fields ...core.Field)  { x.with(fields).Warn(msg) }
func (x Logger) Error(msg string, fields ...core.Field) { x.with(fields).Error(msg) }

func (x Logger) with(fields []core.Field) logrus.FieldLogger {
	if len(fields) == 0 {
		return x.FieldLogger
	}
	m := make(logrus.Fields, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return x.FieldLogger.WithFields(m)
}
