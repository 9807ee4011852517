package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics counts admission pipeline outcomes.
type PipelineMetrics struct {
	payments      *prometheus.CounterVec
	casRetries    prometheus.Counter
	provisioning  *prometheus.CounterVec
	recurringFees *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline counters on reg. A nil registerer
// yields a no-op recorder.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	m := &PipelineMetrics{
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payments processed by purpose and result.",
		}, []string{"purpose", "result"}),
		casRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_cas_retries_total",
			Help:      "Ledger updates retried after a concurrent modification.",
		}),
		provisioning: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisioning_total",
			Help:      "Identity provisioning attempts by outcome.",
		}, []string{"outcome"}),
		recurringFees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurring_fees_total",
			Help:      "Recurring fee generation results.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.payments, m.casRetries, m.provisioning, m.recurringFees, m.notifications)
	return m
}

func (m *PipelineMetrics) IncPayment(purpose, result string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(purpose), normalizeLabel(result)).Inc()
}

func (m *PipelineMetrics) IncCASRetry() {
	if m == nil || m.casRetries == nil {
		return
	}
	m.casRetries.Inc()
}

func (m *PipelineMetrics) IncProvisioning(outcome string) {
	if m == nil || m.provisioning == nil {
		return
	}
	m.provisioning.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddRecurringFees adds n to the counter for result (created, skipped, failed).
func (m *PipelineMetrics) AddRecurringFees(result string, n int) {
	if m == nil || m.recurringFees == nil || n <= 0 {
		return
	}
	m.recurringFees.WithLabelValues(normalizeLabel(result)).Add(float64(n))
}

func (m *PipelineMetrics) IncNotification(result string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(result)).Inc()
}
