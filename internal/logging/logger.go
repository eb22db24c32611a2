package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is usable before BootstrapLogger runs so packages and tests never see
// a nil logger.
var Log = logrus.New()

func BootstrapLogger(level string) {
	Log = &logrus.Logger{
		Out:   os.Stderr,
		Hooks: make(logrus.LevelHooks),
		Formatter: &logrus.TextFormatter{
			FullTimestamp: true,
		},
		Level: logrus.InfoLevel,
	}
	Log.SetReportCaller(true)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Log.Warnf("unknown log level '%s', using info", level)
		return
	}
	Log.SetLevel(lvl)
}
