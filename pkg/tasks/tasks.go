package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeSendVerificationEmail = "email:verification"
	TypeSendPasswordReset     = "email:password_reset"
	TypePruneItems            = "items:prune"
)

type SendVerificationEmailPayload struct {
	Email string
	Code  string
}

func NewSendVerificationEmailTask(email, code string) (*asynq.Task, error) {
	payload, err := json.Marshal(SendVerificationEmailPayload{Email: email, Code: code})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSendVerificationEmail, payload), nil
}

type SendPasswordResetPayload struct {
	Email    string
	Password string
}

func NewSendPasswordResetTask(email, password string) (*asynq.Task, error) {
	payload, err := json.Marshal(SendPasswordResetPayload{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSendPasswordReset, payload), nil
}

func NewPruneItemsTask() (*asynq.Task, error) {
	return asynq.NewTask(TypePruneItems, nil), nil
}
