package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "rankreport-backend"

var zlog = zerolog.New(os.Stdout).With().Timestamp().Str("service", serviceName).Logger()

// InitStructured picks the writer for env: console output locally, JSON lines elsewhere
func InitStructured(env string) {
	zlog = zerolog.New(writerFor(env)).With().
		Timestamp().
		Str("service", serviceName).
		Str("env", env).
		Logger()

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.DurationFieldUnit = time.Millisecond
}

func writerFor(env string) io.Writer {
	switch env {
	case "", "local", "dev", "development":
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	default:
		return os.Stdout
	}
}

// GetLogger returns the global zerolog logger
func GetLogger() *zerolog.Logger {
	return &zlog
}

// Component returns a child logger tagged with a subsystem name
func Component(name string) zerolog.Logger {
	return zlog.With().Str("component", name).Logger()
}
