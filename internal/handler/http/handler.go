package http

import (
	"time"

	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/internal/service"
)

type Handler struct {
	services *service.Services
	metrics  *Metrics

	requestTimeout time.Duration

	logger *logger.Logger
}

func NewHandler(services *service.Services, metrics *Metrics, requestTimeout time.Duration, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services:       services,
		metrics:        metrics,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}
