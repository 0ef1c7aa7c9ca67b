package config

import (
	log "github.com/sirupsen/logrus"
)

// SetupLogging applies LOG_LEVEL and switches to JSON output outside development.
func SetupLogging(level string, json bool) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	if json {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
