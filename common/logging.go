package common

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// LogSetup returns a logrus entry writing to stdout with the given format and level.
func LogSetup(json bool, logLevel string) *logrus.Entry {
	log := logrus.NewEntry(logrus.New())
	log.Logger.SetOutput(os.Stdout)

	if json {
		log.Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	if logLevel != "" {
		lvl, err := logrus.ParseLevel(logLevel)
		if err != nil {
			log.Fatalf("Invalid loglevel: %s", logLevel)
		}
		log.Logger.SetLevel(lvl)
	}
	return log
}

func NewBoltLogger(service string) *logrus.Entry {
	return LogSetup(false, "info").WithFields(logrus.Fields{
		"service": fmt.Sprintf("BOLT-%s", service),
	})
}
