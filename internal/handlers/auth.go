package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"regexp"

	"feedhub/internal/db"
	"feedhub/internal/models"
	"feedhub/pkg/tasks"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// hashPassword is a salted sha256 digest; the secret comes from configuration.
func (h *Handlers) hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password + h.secret))
	return hex.EncodeToString(sum[:])
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !emailPattern.MatchString(req.Email) {
		writeMessage(w, http.StatusBadRequest, "Invalid email")
		return
	}
	if len(req.Password) < 8 {
		writeMessage(w, http.StatusBadRequest, "Password length should be at least 8 characters")
		return
	}

	code := uuid.NewString()
	user, err := db.CreateUser(r.Context(), req.Email, h.hashPassword(req.Password), code)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Email already taken")
		return
	}

	if task, err := tasks.NewSendVerificationEmailTask(user.Email, code); err != nil {
		log.Printf("Error creating verification email task: %v", err)
	} else if _, err := h.asynqClient.Enqueue(task); err != nil {
		log.Printf("Error enqueuing verification email task: %v", err)
	}

	device, err := db.CreateDevice(r.Context(), user.ID, uuid.NewString(), r.UserAgent())
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Account created. Please verify your email.",
		"token":   device.Token,
	})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := db.GetUserByEmail(r.Context(), req.Email)
	if err != nil || user.PasswordHash != h.hashPassword(req.Password) {
		writeMessage(w, http.StatusBadRequest, "Invalid user credentials")
		return
	}

	device, err := db.CreateDevice(r.Context(), user.ID, uuid.NewString(), r.UserAgent())
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Logged in",
		"email":   user.Email,
		"token":   device.Token,
	})
}

// ResetPassword replaces the account password with a generated one and mails
// it out. The response never reveals whether the email exists.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !emailPattern.MatchString(req.Email) {
		writeMessage(w, http.StatusBadRequest, "Invalid email")
		return
	}

	user, err := db.GetUserByEmail(r.Context(), req.Email)
	if err == nil {
		password := uuid.NewString()
		if err := db.SetUserPassword(r.Context(), user.ID, h.hashPassword(password)); err != nil {
			writeMessage(w, http.StatusInternalServerError, "Something went wrong")
			return
		}
		if task, err := tasks.NewSendPasswordResetTask(user.Email, password); err != nil {
			log.Printf("Error creating password reset task: %v", err)
		} else if _, err := h.asynqClient.Enqueue(task); err != nil {
			log.Printf("Error enqueuing password reset task: %v", err)
		}
	}

	writeMessage(w, http.StatusOK, "If this account exists, a reset email was sent")
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	device := r.Context().Value(models.DeviceContextKey).(*models.Device)
	if err := db.DeleteDeviceByToken(r.Context(), device.Token); err != nil {
		writeMessage(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	writeMessage(w, http.StatusOK, "Logged out")
}

func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if _, err := db.VerifyEmailCode(r.Context(), code); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid email verification code")
		return
	}
	writeMessage(w, http.StatusOK, "Email verified")
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(models.UserContextKey).(*models.User)
	device := r.Context().Value(models.DeviceContextKey).(*models.Device)

	writeJSON(w, http.StatusOK, map[string]any{
		"email":         user.Email,
		"createdAt":     user.CreatedAt,
		"emailVerified": user.VerificationCode == nil,
		"pushEnabled":   device.PushEnabled(),
	})
}

// RegisterPush attaches web-push credentials to the session device so the
// notification fanout can reach this browser.
func (h *Handlers) RegisterPush(w http.ResponseWriter, r *http.Request) {
	device := r.Context().Value(models.DeviceContextKey).(*models.Device)

	var req struct {
		Endpoint string `json:"endpoint"`
		P256dh   string `json:"p256dh"`
		Auth     string `json:"auth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		writeMessage(w, http.StatusBadRequest, "Invalid push credentials")
		return
	}

	if err := db.SetDevicePush(r.Context(), device.ID, req.Endpoint, req.P256dh, req.Auth); err != nil {
		writeMessage(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	writeMessage(w, http.StatusOK, "Push enabled")
}
