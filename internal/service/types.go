package service

// CreateDraftInput carries the fields for a new draft approval.
type CreateDraftInput struct {
	LeadID     string
	Channel    string
	ActionType string
	To         string
	Subject    string
	Text       string
	Campaign   string
	Notes      string
}

// BatchResult summarizes one routing cycle for the invoking scheduler or
// operator.
type BatchResult struct {
	Sent    int `json:"sent"`
	Blocked int `json:"blocked"`
	Failed  int `json:"failed"`
	Retried int `json:"retried"`
	Skipped int `json:"skipped"`
}

// Health status values reported by the health service.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	ComponentConnected    = "connected"
	ComponentDisconnected = "disconnected"

	SchedulerRunning = "running"
	SchedulerStopped = "stopped"
)

type HealthStatus struct {
	Status               string `json:"status"`
	SchedulerStatus      string `json:"scheduler_status"`
	DatabaseStatus       string `json:"database_status"`
	RedisStatus          string `json:"redis_status"`
	CircuitBreakerState  string `json:"circuit_breaker_state,omitempty"`
	CircuitBreakerCounts string `json:"circuit_breaker_counts,omitempty"`
}
