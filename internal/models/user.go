package models

import "time"

type contextKey string

// UserContextKey is the key under which middleware stores the authenticated
// user in the request context.
const UserContextKey = contextKey("user")

// DeviceContextKey holds the device row that authenticated the request.
const DeviceContextKey = contextKey("device")

// User is an account in the database.
type User struct {
	ID               int64     `db:"id"`
	Email            string    `db:"email"`
	PasswordHash     string    `db:"password_hash"`
	VerificationCode *string   `db:"verification_code"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// Device is one logged-in session of a user. The push columns are populated
// once the browser registers its web-push credentials for this session.
type Device struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	Token        string    `db:"token"`
	UserAgent    string    `db:"user_agent"`
	PushEndpoint *string   `db:"push_endpoint"`
	PushP256dh   *string   `db:"push_p256dh"`
	PushAuth     *string   `db:"push_auth"`
	CreatedAt    time.Time `db:"created_at"`
}

// PushEnabled reports whether this device has web-push credentials attached.
func (d Device) PushEnabled() bool {
	return d.PushEndpoint != nil && *d.PushEndpoint != ""
}
