package application

import (
	"io"

	"github.com/backoffice-platform/returns-service/pkg/logging"
	"github.com/backoffice-platform/returns-service/pkg/metrics"
	"github.com/backoffice-platform/returns-service/pkg/middleware"
)

func newTestLogger() *logging.Logger {
	return logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "test",
		Output:      io.Discard,
	})
}

func newTestMetrics() *middleware.BusinessMetrics {
	return middleware.NewBusinessMetrics(metrics.New(metrics.DefaultConfig("test")))
}
