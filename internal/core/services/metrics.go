package services

import (
	"time"

	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

// nopMetrics is used when no metrics sink is configured.
type nopMetrics struct{}

func (nopMetrics) DocumentExtracted(bool)          {}
func (nopMetrics) ChunksProduced(int)              {}
func (nopMetrics) BatchIndexed(int, time.Duration) {}
func (nopMetrics) SearchServed(int, time.Duration) {}
func (nopMetrics) TurnCompleted(string)            {}

func metricsOrNop(m driven.Metrics) driven.Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
