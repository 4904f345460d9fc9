package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logg *logrus.Logger

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetLevel(logrus.InfoLevel)
	logg.SetOutput(os.Stdout)
}

// LogError writes a structured ERROR-level entry; data, when non-nil, is
// attached as a field for operator debugging.
func LogError(logger *logrus.Logger, moduleName string, event string, data any, err error) {
	fields := logrus.Fields{"module": moduleName, "event": event}
	if data != nil {
		fields["data"] = data
	}
	msg := event
	if err != nil {
		msg = err.Error()
	}
	logger.WithFields(fields).Error(msg)
}
