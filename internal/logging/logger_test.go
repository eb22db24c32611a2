package logging

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestBootstrapLogger(t *testing.T) {
	t.Cleanup(func() { Log = logrus.New() })

	BootstrapLogger("debug")
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	assert.True(t, Log.ReportCaller)
	assert.Equal(t, os.Stderr, Log.Out)

	BootstrapLogger("loud")
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
}
