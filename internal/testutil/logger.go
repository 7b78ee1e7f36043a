package testutil

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/seoulmarket/marketplace-backend/pkg/logger"
)

// Logger returns a logger that discards output.
func Logger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: io.Discard})
}
