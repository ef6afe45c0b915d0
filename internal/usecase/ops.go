package usecase

// Background task operation names. Handlers are registered under these keys by
// the dispatcher wiring; all of them are idempotent.
const (
	OpUpdateBalance      = "account.update_balance"
	OpEnterPayment       = "account.enter_payment"
	OpRefreshEntryCounts = "invoice.refresh_entry_counts"
	OpNotifyEvent        = "notify.event"
)
