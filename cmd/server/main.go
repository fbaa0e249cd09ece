package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"feedhub/internal/db"
	"feedhub/internal/fetcher"
	"feedhub/internal/handlers"
	"feedhub/internal/ingest"
	"feedhub/internal/middleware"
	"feedhub/internal/notify"
	"feedhub/internal/scheduler"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	db.InitDB()
	if err := db.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("could not ensure schema: %v", err)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer asynqClient.Close()

	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "some-secret"
	}

	fetchTimeout := envSeconds("FETCH_TIMEOUT_SECONDS", 30)
	feedFetcher := fetcher.New(fetchTimeout)

	store := db.Store{}
	engine := ingest.New(store, store)

	push := notify.NewWebPushSender(
		os.Getenv("VAPID_PUBLIC_KEY"),
		os.Getenv("VAPID_PRIVATE_KEY"),
		envDefault("CONTACT_EMAIL", "hello@feedhub.local"),
	)
	threshold, _ := strconv.Atoi(os.Getenv("NOTIFY_NEW_ITEM_THRESHOLD"))
	notifier := notify.New(store, push, threshold)

	sched := scheduler.New(store, feedFetcher, engine, notifier, 0)
	if err := sched.Bootstrap(context.Background()); err != nil {
		log.Printf("Error bootstrapping scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	h := handlers.New(feedFetcher, sched, asynqClient, secret)

	r := mux.NewRouter()
	r.HandleFunc("/signup", h.Signup).Methods(http.MethodPost)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/verify/{code}", h.VerifyEmail).Methods(http.MethodGet)
	r.HandleFunc("/reset-password", h.ResetPassword).Methods(http.MethodPost)

	authed := r.PathPrefix("/").Subrouter()
	authed.Use(middleware.AuthMiddleware)
	authed.Use(middleware.NewRateLimiterMiddleware(rate.Limit(5), 10).Middleware)
	authed.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	authed.HandleFunc("/me", h.Me).Methods(http.MethodGet)
	authed.HandleFunc("/channels", h.GetChannels).Methods(http.MethodGet)
	authed.HandleFunc("/channels/subscribe", h.Subscribe).Methods(http.MethodPost)
	authed.HandleFunc("/channels/unsubscribe", h.Unsubscribe).Methods(http.MethodPost)
	authed.HandleFunc("/subscriptions/{id}", h.UpdateSubscription).Methods(http.MethodPut)
	authed.HandleFunc("/items", h.GetItems).Methods(http.MethodGet)
	authed.HandleFunc("/devices/push", h.RegisterPush).Methods(http.MethodPost)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s (commit: %s)", port, CommitSHA)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envSeconds(key string, fallback int) time.Duration {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return time.Duration(v) * time.Second
	}
	return time.Duration(fallback) * time.Second
}
