package service

import (
	"errors"

	"filecatalog/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Количество операций каталога по результату
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filecatalog_operations_total",
			Help: "Total number of catalog operations by result",
		},
		[]string{"operation", "result"},
	)

	// Компенсирующие удаления blob'ов
	compensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filecatalog_compensations_total",
			Help: "Total number of compensating blob deletions by result",
		},
		[]string{"result"},
	)
)

const (
	resultSuccess    = "success"
	resultValidation = "validation"
	resultConflict   = "conflict"
	resultNotFound   = "not_found"
	resultError      = "error"
)

func observe(operation string, err error) {
	operationsTotal.WithLabelValues(operation, resultOf(err)).Inc()
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return resultSuccess
	case errors.Is(err, domain.ErrValidation):
		return resultValidation
	case errors.Is(err, domain.ErrConflict):
		return resultConflict
	case errors.Is(err, domain.ErrNotFound):
		return resultNotFound
	default:
		return resultError
	}
}
