// Package bootstrap builds services and adapters from configuration for the
// command-line and function entry points.
package bootstrap

import (
	log "github.com/sirupsen/logrus"

	"caption-service/internal/config"
)

func InitLogger(cfg config.LoggerConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
