package schema

import "time"

// HistoryRecord is one visited URL for an account.
type HistoryRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
