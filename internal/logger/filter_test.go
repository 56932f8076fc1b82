package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestFilterHookMarksDisallowedModule(t *testing.T) {
	hook := NewFilterHook(&LogConfig{FilterModules: "admission, dispatcher", FilterLogTypes: "*"})
	l := logrus.New()

	allowed := logrus.NewEntry(l).WithField("module", "Admission")
	allowed.Level = logrus.InfoLevel
	assert.NoError(t, hook.Fire(allowed))
	_, marked := allowed.Data[filteredField]
	assert.False(t, marked)

	denied := logrus.NewEntry(l).WithField("module", "planner")
	denied.Level = logrus.InfoLevel
	assert.NoError(t, hook.Fire(denied))
	assert.Equal(t, true, denied.Data[filteredField])
}

func TestFilterHookLevel(t *testing.T) {
	hook := NewFilterHook(&LogConfig{FilterModules: "*", FilterLogTypes: "warn,error"})
	e := logrus.NewEntry(logrus.New())
	e.Level = logrus.DebugLevel
	assert.NoError(t, hook.Fire(e))
	assert.Equal(t, true, e.Data[filteredField])
}
