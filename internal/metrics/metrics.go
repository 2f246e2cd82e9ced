// Package metrics exposes pipeline counters and gauges over Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics implements the pipeline's Recorder against a Prometheus registry.
type Metrics struct {
	candlesFetched prometheus.Counter
	signalsTotal   *prometheus.CounterVec
	ordersTotal    *prometheus.CounterVec
	updatesTotal   *prometheus.CounterVec

	lastPrice      prometheus.Gauge
	lastConfidence prometheus.Gauge
	modelVersion   prometheus.Gauge
}

// New registers the pipeline metrics on a fresh registry and returns both.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		candlesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "tradefusion_candles_fetched_total",
			Help: "Number of candles fetched from the market data feed.",
		}),
		signalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tradefusion_signals_total",
			Help: "Generated signals by type.",
		}, []string{"signal_type"}),
		ordersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tradefusion_orders_total",
			Help: "Placed orders by side.",
		}, []string{"side"}),
		updatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tradefusion_online_updates_total",
			Help: "Online model update attempts by outcome.",
		}, []string{"outcome"}),
		lastPrice: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tradefusion_last_price",
			Help: "Most recent close price seen by the poller.",
		}),
		lastConfidence: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tradefusion_last_signal_confidence",
			Help: "Confidence of the most recent signal.",
		}),
		modelVersion: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tradefusion_model_version",
			Help: "Version of the classifier currently serving predictions.",
		}),
	}
	return m, reg
}

// CandlesFetched counts candles delivered by the data feed.
func (m *Metrics) CandlesFetched(n int) {
	m.candlesFetched.Add(float64(n))
}

// SignalGenerated counts one fused signal and records its confidence.
func (m *Metrics) SignalGenerated(signalType string, confidence float64) {
	m.signalsTotal.WithLabelValues(signalType).Inc()
	m.lastConfidence.Set(confidence)
}

// OrderPlaced counts one executed order.
func (m *Metrics) OrderPlaced(side string) {
	m.ordersTotal.WithLabelValues(side).Inc()
}

// OnlineUpdate counts one online update attempt.
func (m *Metrics) OnlineUpdate(applied bool) {
	outcome := "applied"
	if !applied {
		outcome = "skipped"
	}
	m.updatesTotal.WithLabelValues(outcome).Inc()
}

// LastPrice records the latest close price.
func (m *Metrics) LastPrice(price float64) {
	m.lastPrice.Set(price)
}

// ModelVersion records the serving model version.
func (m *Metrics) ModelVersion(version int) {
	m.modelVersion.Set(float64(version))
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("Metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("Metrics server failed")
	}
}
