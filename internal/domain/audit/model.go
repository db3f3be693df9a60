package audit

import "time"

// Entry is an append-only record of an administrative action.
type Entry struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id"`
	ActorEmail   string         `json:"actor_email,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Before       map[string]any `json:"before,omitempty"`
	After        map[string]any `json:"after,omitempty"`
	RemoteAddr   string         `json:"remote_addr,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Filter narrows audit log listings.
type Filter struct {
	ActorID      string
	Action       string
	ResourceType string
	Since        time.Time
	Until        time.Time
	Limit        int
}

// Stats aggregates entry counts over a window.
type Stats struct {
	Total      int            `json:"total"`
	ByAction   map[string]int `json:"by_action"`
	ByResource map[string]int `json:"by_resource"`
	Since      time.Time      `json:"since"`
	Until      time.Time      `json:"until"`
}
