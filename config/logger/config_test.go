package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestConfig_Check(t *testing.T) {
	assert.NoError(t, DefaultConfig.Check())
	assert.Error(t, Config{Level: "info", Format: "xml"}.Check())
	assert.Error(t, Config{Level: "info", Format: "json", Timestamp: "sometimes"}.Check())
	assert.NoError(t, Config{Level: "debug", Format: "json"}.Check())
}

func TestConfig_Merge(t *testing.T) {
	c := DefaultConfig.Merge(Config{Level: "debug"})
	assert.Equal(t, Config{Level: "debug", Format: "human", Timestamp: "short"}, c)
}

func TestConfigureLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	ConfigureLogger(l, Config{Level: "warning", Format: "human", Timestamp: "disable"})
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())

	l.WithField("job", "export").Info("hidden")
	l.WithField("job", "export").Warn("Backup is incomplete")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[export] Backup is incomplete")
}
