package domain

import "time"

// Member is the local projection of a user owned by the user service. It is
// upserted from user.* events, keyed by the user id.
type Member struct {
	ID         string `gorm:"primaryKey"` // user id from the user service
	Email      string `gorm:"index"`
	FirstName  string
	LastName   string
	Role       string
	Timestamps `gorm:"embedded"`
}

// EventConsumed dedupes at-least-once deliveries from the bus.
type EventConsumed struct {
	ID          string `gorm:"primaryKey"` // event unique id
	EventKey    string `gorm:"index"`      // e.g. user.registered
	ProcessedAt time.Time
}
