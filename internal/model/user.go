// internal/model/user.go
package model

import "time"

// User is created and kept up to date outside this service. Preferences is an
// opaque JSON document and is never interpreted here.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	LastActiveAt time.Time `db:"last_active_at" json:"lastActiveAt"`
	PushToken    *string   `db:"push_token" json:"pushToken"`
	Preferences  *string   `db:"preferences" json:"preferences,omitempty"`
}
