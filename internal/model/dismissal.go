package model

// DismissalStrategy tags which matching method decided a dismissal.
type DismissalStrategy string

const (
	StrategyDatabaseID DismissalStrategy = "database_id"
	StrategyTimeWindow DismissalStrategy = "time_window"
	StrategyContent    DismissalStrategy = "content"
	StrategyCategory   DismissalStrategy = "category"
)

// DismissalResult is the outcome of evaluating one presented notification
// against a dismissal target. Context is human-readable rationale for
// diagnostics only and never drives control flow.
type DismissalResult struct {
	ShouldDismiss bool              `json:"should_dismiss"`
	Strategy      DismissalStrategy `json:"strategy"`
	Confidence    int               `json:"confidence"` // 0-100
	Context       string            `json:"context"`
}
