package model

import "time"

// UserMemory is the single distilled fact record kept per user.
// Facts is replaced in full on every successful distillation.
type UserMemory struct {
	OwnerID   OwnerID
	Facts     string
	UpdatedAt time.Time
}
