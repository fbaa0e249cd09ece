package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"feedhub/internal/db"
	"feedhub/pkg/tasks"

	"github.com/hibiken/asynq"
)

// ItemRetention is how long an item survives after it was last observed in
// its source feed. The prune task deletes anything older; the ingestion path
// itself never deletes.
const ItemRetention = 7 * 24 * time.Hour

// Mailer delivers one transactional mail. Implemented by mail.SMTPMailer.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type TaskHandler struct {
	mailer  Mailer
	baseURL string
}

func NewTaskHandler(mailer Mailer, baseURL string) *TaskHandler {
	return &TaskHandler{mailer: mailer, baseURL: baseURL}
}

func (h *TaskHandler) HandleSendVerificationEmailTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.SendVerificationEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	body := fmt.Sprintf(
		"Welcome to Feedhub!\n\nPlease verify your email address by opening:\n%s/verify/%s\n",
		h.baseURL, p.Code)
	if err := h.mailer.Send(ctx, p.Email, "Verify your Feedhub email", body); err != nil {
		return fmt.Errorf("failed to send verification email to %s: %w", p.Email, err)
	}

	log.Printf("Sent verification email to %s", p.Email)
	return nil
}

func (h *TaskHandler) HandleSendPasswordResetTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.SendPasswordResetPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	body := fmt.Sprintf(
		"Your Feedhub password was reset.\n\nNew password: %s\n\nPlease log in and change it.\n",
		p.Password)
	if err := h.mailer.Send(ctx, p.Email, "Your Feedhub password was reset", body); err != nil {
		return fmt.Errorf("failed to send password reset email to %s: %w", p.Email, err)
	}

	log.Printf("Sent password reset email to %s", p.Email)
	return nil
}

// HandlePruneItemsTask expires items no longer present upstream, based on
// their touched timestamp.
func (h *TaskHandler) HandlePruneItemsTask(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().Add(-ItemRetention)
	pruned, err := db.DeleteItemsNotTouchedSince(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune items: %w", err)
	}
	log.Printf("Pruned %d items not touched since %s", pruned, cutoff.Format(time.RFC3339))
	return nil
}
