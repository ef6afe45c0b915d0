package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		invoicesChargedTotal,
		invoicesChargedAmount,
		subscriptionRenewalsTotal,
		subscriptionsCancelledTotal,
		tasksProcessedTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Gateway payment attempts by outcome (completed/declined/unknown/compensated/reconciled).",
		},
		[]string{"status"},
	)

	invoicesChargedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invoices_charged_total",
			Help: "Invoices successfully charged.",
		},
	)

	invoicesChargedAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invoices_charged_amount_total",
			Help: "Total charged invoice value in minor units.",
		},
	)

	subscriptionRenewalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_renewals_total",
			Help: "Subscription renewal attempts by outcome.",
		},
		[]string{"outcome"}, // 'renewed', 'failed'
	)

	subscriptionsCancelledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_cancelled_total",
			Help: "Subscriptions cancelled.",
		},
	)

	tasksProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_tasks_processed_total",
			Help: "Background tasks processed by operation and status.",
		},
		[]string{"operation", "status"}, // status: 'ok', 'error'
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func IncInvoiceCharged(amount int64) {
	invoicesChargedTotal.Inc()
	if amount > 0 {
		invoicesChargedAmount.Add(float64(amount))
	}
}

func IncSubscriptionRenewal(ok bool) {
	outcome := "failed"
	if ok {
		outcome = "renewed"
	}
	subscriptionRenewalsTotal.WithLabelValues(outcome).Inc()
}

func IncSubscriptionCancelled() { subscriptionsCancelledTotal.Inc() }

func IncTaskProcessed(operation string, ok bool) {
	status := "error"
	if ok {
		status = "ok"
	}
	tasksProcessedTotal.WithLabelValues(norm(operation), status).Inc()
}
