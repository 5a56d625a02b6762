package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brwallet/pix-wallet-go/internal/platform/wallet"
)

type Metrics struct {
	withdrawOpsTotal    *prometheus.CounterVec
	sweepRunsTotal      *prometheus.CounterVec
	sweepProcessedTotal prometheus.Counter
	sweepFailedTotal    prometheus.Counter
	sweepLastFound      prometheus.Gauge
	sweepLastRunUnix    prometheus.Gauge
	loginAttemptsTotal  *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
}

// NewMetrics registers on the given registerer so tests can use private
// registries without duplicate-registration panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		withdrawOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pix_wallet",
				Subsystem: "withdraw",
				Name:      "operations_total",
				Help:      "Withdrawal operations partitioned by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		sweepRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pix_wallet",
				Subsystem: "sweep",
				Name:      "runs_total",
				Help:      "Sweep runs partitioned by result.",
			},
			[]string{"result"},
		),
		sweepProcessedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pix_wallet",
				Subsystem: "sweep",
				Name:      "processed_total",
				Help:      "Scheduled withdrawals executed successfully.",
			},
		),
		sweepFailedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pix_wallet",
				Subsystem: "sweep",
				Name:      "failed_total",
				Help:      "Scheduled withdrawals that failed during execution.",
			},
		),
		sweepLastFound: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pix_wallet",
				Subsystem: "sweep",
				Name:      "last_found",
				Help:      "Due records found by the most recent sweep run.",
			},
		),
		sweepLastRunUnix: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pix_wallet",
				Subsystem: "sweep",
				Name:      "last_run_unix",
				Help:      "Unix time of the most recent sweep run.",
			},
		),
		loginAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pix_wallet",
				Subsystem: "auth",
				Name:      "login_attempts_total",
				Help:      "Login attempts partitioned by result.",
			},
			[]string{"result"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pix_wallet",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP responses partitioned by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// ObserveWithdraw is wired into the engine via wallet.WithObserver.
func (m *Metrics) ObserveWithdraw(action, outcome string) {
	if m == nil {
		return
	}
	m.withdrawOpsTotal.WithLabelValues(action, outcome).Inc()
}

// ObserveSweep is wired into the sweep via wallet.SweepObserver.
func (m *Metrics) ObserveSweep(res wallet.SweepResult, nowUnix int64) {
	if m == nil {
		return
	}
	m.sweepLastRunUnix.Set(float64(nowUnix))
	if res.Skipped {
		m.sweepRunsTotal.WithLabelValues("skipped").Inc()
		return
	}
	m.sweepRunsTotal.WithLabelValues("completed").Inc()
	m.sweepLastFound.Set(float64(res.Found))
	m.sweepProcessedTotal.Add(float64(res.Processed))
	m.sweepFailedTotal.Add(float64(res.Failed))
}

func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.loginAttemptsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) observeHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, httpStatusClass(status)).Inc()
}

func httpStatusClass(status int) string {
	switch {
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
