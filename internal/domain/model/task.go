package model

type TaskKind string

const (
	TaskKindBilling TaskKind = "billing"
	TaskKindMeta    TaskKind = "meta"
	TaskKindNotify  TaskKind = "notify"
)

// Task is a fire-and-forget background job. Delivery is at least once with no
// ordering guarantee, so every handler must be idempotent.
type Task struct {
	Kind      TaskKind
	Operation string // handler name, e.g. "account.update_balance"
	TargetID  string
	Args      map[string]string
}
