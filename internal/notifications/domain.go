package notifications

import "time"

// Level classifies a notification.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// Valid reports whether the level is one of the known values.
func (l Level) Valid() bool {
	return l == LevelInfo || l == LevelWarning || l == LevelError
}

// Notification is a per-user message, e.g. a low-stock warning.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Level     Level     `json:"level"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
