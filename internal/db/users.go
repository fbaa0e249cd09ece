package db

import (
	"context"
	"log"

	"feedhub/internal/models"
)

func CreateUser(ctx context.Context, email, passwordHash, verificationCode string) (models.User, error) {
	query := `
		INSERT INTO users (email, password_hash, verification_code)
		VALUES ($1, $2, $3)
		RETURNING *
	`
	user := models.User{}
	err := DB.GetContext(ctx, &user, query, email, passwordHash, verificationCode)
	if err != nil {
		log.Printf("Error creating user %s: %v", email, err)
		return user, err
	}
	return user, nil
}

func GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	user := models.User{}
	err := DB.GetContext(ctx, &user, "SELECT * FROM users WHERE lower(email) = lower($1)", email)
	return user, err
}

// GetUserByDeviceToken resolves a session token to its user and device row.
func GetUserByDeviceToken(ctx context.Context, token string) (models.User, models.Device, error) {
	device := models.Device{}
	user := models.User{}
	if err := DB.GetContext(ctx, &device, "SELECT * FROM devices WHERE token = $1", token); err != nil {
		return user, device, err
	}
	err := DB.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", device.UserID)
	return user, device, err
}

// VerifyEmailCode clears the pending verification code, marking the email as
// verified. Returns sql.ErrNoRows via Get when the code is unknown.
func VerifyEmailCode(ctx context.Context, code string) (models.User, error) {
	query := `
		UPDATE users SET verification_code = NULL, updated_at = NOW()
		WHERE verification_code = $1
		RETURNING *
	`
	user := models.User{}
	err := DB.GetContext(ctx, &user, query, code)
	return user, err
}

func SetUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := DB.ExecContext(ctx,
		"UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2",
		passwordHash, userID)
	if err != nil {
		log.Printf("Error setting password for user %d: %v", userID, err)
	}
	return err
}

func CreateDevice(ctx context.Context, userID int64, token, userAgent string) (models.Device, error) {
	query := `
		INSERT INTO devices (user_id, token, user_agent)
		VALUES ($1, $2, $3)
		RETURNING *
	`
	device := models.Device{}
	err := DB.GetContext(ctx, &device, query, userID, token, userAgent)
	if err != nil {
		log.Printf("Error creating device for user %d: %v", userID, err)
		return device, err
	}
	return device, nil
}

func DeleteDeviceByToken(ctx context.Context, token string) error {
	_, err := DB.ExecContext(ctx, "DELETE FROM devices WHERE token = $1", token)
	return err
}

// SetDevicePush attaches web-push credentials to a session device.
func SetDevicePush(ctx context.Context, deviceID int64, endpoint, p256dh, auth string) error {
	_, err := DB.ExecContext(ctx,
		"UPDATE devices SET push_endpoint = $1, push_p256dh = $2, push_auth = $3 WHERE id = $4",
		endpoint, p256dh, auth, deviceID)
	if err != nil {
		log.Printf("Error setting push credentials for device %d: %v", deviceID, err)
	}
	return err
}
