// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"errors"

	"github.com/luxfi/metric"
)

const (
	metricsNamespace = "gateway_relayer"

	resultLabel = "result"
)

var resultLabels = []string{resultLabel}

type metrics struct {
	RelaysStarted       metric.Counter
	RelaysSucceeded     metric.Counter
	RelaysFailed        metric.Counter
	SignaturesRelayed   metric.CounterVec // result
	MessagesSubmitted   metric.CounterVec // result
	Rotations           metric.Counter
	PayloadChunks       metric.Counter
	PayloadBytesWritten metric.Counter
}

func newMetrics(registerer metric.Registerer) (*metrics, error) {
	m := &metrics{
		RelaysStarted: metric.NewCounter(metric.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "relays_started",
			Help:      "number of execute data relays started",
		}),
		RelaysSucceeded: metric.NewCounter(metric.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "relays_succeeded",
			Help:      "number of execute data relays that completed",
		}),
		RelaysFailed: metric.NewCounter(metric.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "relays_failed",
			Help:      "number of execute data relays that failed",
		}),
		SignaturesRelayed: metric.NewCounterVec(
			metric.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "signatures_relayed",
				Help:      "number of signature submissions by result",
			},
			resultLabels,
		),
		MessagesSubmitted: metric.NewCounterVec(
			metric.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "messages_submitted",
				Help:      "number of message approvals submitted by result",
			},
			resultLabels,
		),
		Rotations: metric.NewCounter(metric.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rotations",
			Help:      "number of verifier set rotations relayed",
		}),
		PayloadChunks: metric.NewCounter(metric.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payload_chunks",
			Help:      "number of payload chunks written",
		}),
		PayloadBytesWritten: metric.NewCounter(metric.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payload_bytes_written",
			Help:      "number of payload bytes written to the gateway",
		}),
	}
	return m, errors.Join()
}

func (m *metrics) submission(vec metric.CounterVec, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	vec.With(metric.Labels{resultLabel: result}).Inc()
}
