// Package metrics defines the Prometheus collectors of the airspy and spyserver receivers.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spyadapter"

var (
	AirspyTransfers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "airspy",
		Name:      "transfers_total",
		Help:      "Transfers delivered by the airspy driver.",
	}, []string{"serial"})

	AirspySamples = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "airspy",
		Name:      "samples_total",
		Help:      "Samples delivered by the airspy driver.",
	}, []string{"serial"})

	AirspyDroppedSamples = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "airspy",
		Name:      "dropped_samples_total",
		Help:      "Samples the airspy driver reported as dropped.",
	}, []string{"serial"})

	SpyserverBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "spyserver",
		Name:      "received_bytes_total",
		Help:      "Bytes read from the spyserver connection.",
	}, []string{"server"})

	SpyserverMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "spyserver",
		Name:      "messages_total",
		Help:      "Messages received from spyserver by type.",
	}, []string{"server", "type"})

	SpyserverDroppedBuffers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "spyserver",
		Name:      "dropped_buffers_total",
		Help:      "Stream buffers lost according to the sequence numbers.",
	}, []string{"server"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		AirspyTransfers,
		AirspySamples,
		AirspyDroppedSamples,
		SpyserverBytes,
		SpyserverMessages,
		SpyserverDroppedBuffers,
	}
}

// Register adds every collector to reg. Collectors already registered are skipped.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler returns the http handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve registers the collectors on the default registry and blocks serving them on addr.
func Serve(addr, path string) error {
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(path, Handler(prometheus.DefaultGatherer))

	//nolint:gosec // the metrics listener has no timeouts configured
	return http.ListenAndServe(addr, mux)
}
