package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		transactionsTotal,
		transactionsVoidedTotal,
		balanceReconciliationsTotal,
	)
}

var (
	transactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Completed ledger transactions by type (charge/payment/credit/refund).",
		},
		[]string{"type"},
	)

	transactionsVoidedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_transactions_voided_total",
			Help: "Completed transactions transitioned to void.",
		},
	)

	balanceReconciliationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_balance_reconciliations_total",
			Help: "Authoritative full-recompute balance reconciliations performed.",
		},
	)
)

func IncTransaction(txType string) {
	transactionsTotal.WithLabelValues(norm(txType)).Inc()
}

func IncTransactionVoided() { transactionsVoidedTotal.Inc() }

func IncBalanceReconciled() { balanceReconciliationsTotal.Inc() }
