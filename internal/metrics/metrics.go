package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "loyaltix"

// Result label values
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics owns its registry so tests and several binaries can build their own
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Purchases       *prometheus.CounterVec
	PurchaseRevenue prometheus.Counter
	LedgerOps       *prometheus.CounterVec
	PointsAwarded   prometheus.Counter
	PointsRedeemed  prometheus.Counter
	TierCorrections prometheus.Counter
	CacheLookups    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of all HTTP requests",
		}, []string{"method", "path", "status_code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of all HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status_code"}),

		Purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_purchases_total",
			Help:      "Ticket purchases by outcome",
		}, []string{"result"}),
		PurchaseRevenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_revenue_total",
			Help:      "Sum of final prices of purchased tickets",
		}),
		LedgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Loyalty ledger operations by kind and outcome",
		}, []string{"op", "result"}),
		PointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Points credited to accounts",
		}),
		PointsRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_redeemed_total",
			Help:      "Points debited from accounts",
		}),
		TierCorrections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_corrections_total",
			Help:      "Accounts whose stored tier did not match their points",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_cache_lookups_total",
			Help:      "Account cache lookups by result",
		}, []string{"result"}),
	}

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m.registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.Purchases,
		m.PurchaseRevenue,
		m.LedgerOps,
		m.PointsAwarded,
		m.PointsRedeemed,
		m.TierCorrections,
		m.CacheLookups,
	)

	return m
}

// RegisterDB exports connection pool stats of db
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Result maps an error to the result label
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
