package client

import "time"

// Lock is one held lock as reported by the service.
type Lock struct {
	Key      string    `json:"key"`
	Name     string    `json:"name"`
	Holder   string    `json:"holder"`
	Count    int       `json:"count"`
	ExpireAt time.Time `json:"expire_at"`
	TTLMs    int64     `json:"ttl_ms"`
}

// TTL returns the remaining lease.
func (l *Lock) TTL() time.Duration {
	return time.Duration(l.TTLMs) * time.Millisecond
}

// Event is one audit log entry.
type Event struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	Holder    string    `json:"holder"`
	Type      string    `json:"type"`
	Count     int       `json:"count"`
	LeaseMs   int64     `json:"lease_ms"`
	WaitMs    int64     `json:"wait_ms"`
	CreatedAt time.Time `json:"created_at"`
}

type acquireRequest struct {
	Holder  string `json:"holder"`
	WaitMs  int64  `json:"wait_ms"`
	LeaseMs int64  `json:"lease_ms"`
}

type releaseRequest struct {
	Holder string `json:"holder"`
}

type renewRequest struct {
	Holder  string `json:"holder"`
	LeaseMs int64  `json:"lease_ms"`
}

type releaseResponse struct {
	Key      string `json:"key"`
	Released bool   `json:"released"`
}

type lockListResponse struct {
	Locks []Lock `json:"locks"`
	Total int    `json:"total"`
}

type eventListResponse struct {
	Events []Event `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
