package models

import "time"

// User is a registered identity. Salt is opaque and returned to clients
// verbatim; Verifier is a lowercase hex integer.
type User struct {
	ID        string    `db:"id"`
	UserName  string    `db:"username"`
	Salt      string    `db:"salt"`
	Verifier  string    `db:"verifier"`
	CreatedAt time.Time `db:"created_at"`
}
