// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"errors"

	"github.com/luxfi/metric"
)

const (
	metricsNamespace = "gateway"

	resultLabel = "result"
)

var resultLabels = []string{resultLabel}

// Metrics tracks gateway operation volume
type Metrics struct {
	SessionsInitialized metric.Counter
	SessionsCompleted   metric.Counter
	SignatureSteps      metric.CounterVec // result
	MessagesApproved    metric.Counter
	MessagesExecuted    metric.Counter
	Rotations           metric.Counter
	CurrentEpoch        metric.Gauge
	PayloadBytesStaged  metric.Counter
}

// NewMetrics creates gateway metrics registered with the registerer
func NewMetrics(registerer metric.Registerer) (*Metrics, error) {
	m := &Metrics{
		SessionsInitialized: metric.NewCounter(metric.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_initialized",
			Help:      "number of verification sessions initialized",
		}),
		SessionsCompleted: metric.NewCounter(metric.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_completed",
			Help:      "number of verification sessions that reached quorum",
		}),
		SignatureSteps: metric.NewCounterVec(
			metric.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "signature_steps",
				Help:      "number of signature verification steps by result",
			},
			resultLabels,
		),
		MessagesApproved: metric.NewCounter(metric.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_approved",
			Help:      "number of messages approved",
		}),
		MessagesExecuted: metric.NewCounter(metric.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_executed",
			Help:      "number of approved messages executed",
		}),
		Rotations: metric.NewCounter(metric.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rotations",
			Help:      "number of verifier set rotations",
		}),
		CurrentEpoch: metric.NewGauge(metric.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "current_epoch",
			Help:      "epoch of the latest verifier set",
		}),
		PayloadBytesStaged: metric.NewCounter(metric.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payload_bytes_staged",
			Help:      "number of payload bytes written to staging buffers",
		}),
	}
	return m, errors.Join()
}

// signatureStep counts one verification step outcome
func (m *Metrics) signatureStep(err error) {
	result := "ok"
	if err != nil {
		var gwErr *Error
		if errors.As(err, &gwErr) {
			result = gwErr.Message
		} else {
			result = "error"
		}
	}
	m.SignatureSteps.With(metric.Labels{resultLabel: result}).Inc()
}
