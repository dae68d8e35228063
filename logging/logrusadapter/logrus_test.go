package logrusadapter

import (
	"os"
	"testing"

	"github.com/Swind/go-coop-task/core"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ExampleNew() {
	logger := func() Logger {
		l := logrus.New()
		l.SetOutput(os.Stdout)
		l.SetFormatter(&logrus.TextFormatter{
			DisableColors:    true,
			DisableTimestamp: true,
		})
		return New(l.WithField("scheduler", "main"))
	}()

	logger.Info("task handed off", core.F("to", core.Background), core.F("task_id", 7))
	logger.Warn("abort requested for all tasks", core.F("count", 2))

	//output:
	//level=info msg="task handed off" scheduler=main task_id=7 to=Background
	//level=warning msg="abort requested for all tasks" count=2 scheduler=main
}

// TestLogger_LevelsAndFields verifies entries carry level, message and fields
// Given: An adapter over a logrus test logger at info level
// When: One message per level is logged
// Then: Debug is dropped and the other entries keep their fields
func TestLogger_LevelsAndFields(t *testing.T) {
	// Arrange
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.InfoLevel)
	logger := New(base)

	// Act
	logger.Debug("dropped")
	logger.Info("tick driver started", core.F("interval", "16ms"))
	logger.Warn("slow")
	logger.Error("step panicked", core.F("task_id", core.TaskID(3)))

	// Assert
	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, "16ms", entries[0].Data["interval"])
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Empty(t, entries[1].Data)
	assert.Equal(t, logrus.ErrorLevel, entries[2].Level)
	assert.Equal(t, core.TaskID(3), entries[2].Data["task_id"])
}

// TestLogger_AsSchedulerLogger verifies panics reach logrus at error level
func TestLogger_AsSchedulerLogger(t *testing.T) {
	base, hook := test.NewNullLogger()
	s := core.NewScheduler(&core.SchedulerConfig{
		Logger:       New(base),
		PanicHandler: silentPanics{},
	})

	s.Run(func() { panic("boom") }, core.Cooperative)
	s.Tick()

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "step panicked", last.Message)
	assert.Equal(t, "boom", last.Data["panic"])
}

type silentPanics struct{}

func (silentPanics) HandlePanic(core.TaskID, core.Backend, any, []byte) {}
