package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// PaymentMetrics records charge attempts and their financial outcomes.
type PaymentMetrics struct {
	charges     *prometheus.CounterVec
	applied     prometheus.Histogram
	creditDrawn prometheus.Histogram
	allocations prometheus.Counter
}

// Charge outcome labels.
const (
	OutcomePosted   = "posted"
	OutcomeDeclined = "declined"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
)

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	charges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_charges_total",
		Help: "Charge attempts by outcome.",
	}, []string{"outcome"})
	applied := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_applied_amount",
		Help:    "Amount applied to invoices per posted payment.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
	creditDrawn := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_credit_drawn",
		Help:    "Credit drawn per posted payment.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
	allocations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_allocations_total",
		Help: "Invoice allocations written by posted payments.",
	})
	reg.MustRegister(charges, applied, creditDrawn, allocations)
	return &PaymentMetrics{
		charges:     charges,
		applied:     applied,
		creditDrawn: creditDrawn,
		allocations: allocations,
	}
}

// IncCharge increments the charge counter for the given outcome.
func (p *PaymentMetrics) IncCharge(outcome string) {
	if p == nil || p.charges == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	p.charges.WithLabelValues(outcome).Inc()
}

// ObservePosted records the financial shape of a posted payment.
func (p *PaymentMetrics) ObservePosted(applied, creditUsed decimal.Decimal, allocationCount int) {
	if p == nil || p.applied == nil {
		return
	}
	p.applied.Observe(applied.InexactFloat64())
	p.creditDrawn.Observe(creditUsed.InexactFloat64())
	p.allocations.Add(float64(allocationCount))
}
