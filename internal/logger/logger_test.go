package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter_Levels(t *testing.T) {
	var buf bytes.Buffer
	quiet := NewWithWriter(&buf, false)
	quiet.Debug("hidden")
	quiet.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")

	buf.Reset()
	verbose := NewWithWriter(&buf, true)
	assert.Equal(t, logrus.DebugLevel, verbose.GetLevel())
	verbose.Debugf("NWDB API: GET %s", "/db/item/abc.json")
	assert.Contains(t, buf.String(), "level=debug")
	assert.Contains(t, buf.String(), "/db/item/abc.json")
}

func TestDiscard_DropsOutput(t *testing.T) {
	l := Discard()
	assert.NotPanics(t, func() { l.Warn("dropped") })
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}
