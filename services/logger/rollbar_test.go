package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
)

func TestRollbarLogger_echo(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	logger := NewRollbarLogger(zap.New(obsCore), &core.Config{Env: "TEST", Build: "test"})
	logger.Enable(false)

	err := errors.New("boom")
	person := course.Person{ID: "jdoe", FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"}

	logger.Info("assigned graders", map[string]interface{}{"project": "p1"})
	logger.Error("saving grader assignments", err, person)

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "assigned graders", entries[0].Message)
	assert.Equal(t, "p1", entries[0].ContextMap()["project"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	ctx := entries[1].ContextMap()
	assert.Equal(t, "boom", ctx["error"])
	assert.Equal(t, "jdoe", ctx["person"])
}

func TestNopLogger(t *testing.T) {
	var logger core.Logger = NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Info("nothing")
		logger.Fatal("still nothing")
	})
}
