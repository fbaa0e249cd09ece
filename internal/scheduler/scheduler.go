package scheduler

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"feedhub/internal/fetcher"
	"feedhub/internal/models"

	"github.com/robfig/cron/v3"
)

const (
	// DefaultRetentionWindow: channels without a successful fetch inside this
	// window are dormant and are not scheduled at bootstrap. They come back
	// when someone subscribes to them again.
	DefaultRetentionWindow = 30 * 24 * time.Hour

	// DefaultFetchIntervalMinutes applies when a channel carries no interval.
	DefaultFetchIntervalMinutes = 60

	defaultCycleTimeout = 2 * time.Minute
)

// FeedFetcher produces a normalized feed result for a URL.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) (*fetcher.Result, error)
}

// Ingestor reconciles a fetch result against the stores and reports the
// newly observed items.
type Ingestor interface {
	Ingest(ctx context.Context, ch models.Channel, res *fetcher.Result) ([]models.Item, error)
}

// Notifier evaluates the new-item delta and delivers to subscribers.
type Notifier interface {
	MaybeNotify(ctx context.Context, ch models.Channel, newItems []models.Item)
}

// ChannelSource loads the channels to schedule at bootstrap.
type ChannelSource interface {
	FindActiveChannels(ctx context.Context, since time.Time) ([]models.Channel, error)
}

// job is the in-memory scheduling entity for one channel. It is never
// persisted; bootstrap rebuilds the job table from the channel store.
type job struct {
	channel  models.Channel
	entry    cron.EntryID
	inflight atomic.Bool
}

// Scheduler owns one recurring ingestion job per active channel. Channels are
// fully independent units of concurrency: a slow or failing cycle on one
// channel never delays or cancels another channel's timer.
//
// Register is strictly idempotent by channel identity; a changed fetch
// interval takes effect only after Unregister + Register.
type Scheduler struct {
	channels ChannelSource
	fetcher  FeedFetcher
	ingestor Ingestor
	notifier Notifier

	cycleTimeout time.Duration
	retention    time.Duration

	cron *cron.Cron
	mu   sync.Mutex
	jobs map[int64]*job
}

func New(channels ChannelSource, f FeedFetcher, ing Ingestor, n Notifier, cycleTimeout time.Duration) *Scheduler {
	if cycleTimeout <= 0 {
		cycleTimeout = defaultCycleTimeout
	}
	return &Scheduler{
		channels:     channels,
		fetcher:      f,
		ingestor:     ing,
		notifier:     n,
		cycleTimeout: cycleTimeout,
		retention:    DefaultRetentionWindow,
		cron:         cron.New(),
		jobs:         make(map[int64]*job),
	}
}

// Start begins firing the registered schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the timers. In-flight cycles are abandoned; every write they
// issue is idempotent, so the next process start re-ingests safely.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Bootstrap loads every channel fetched within the retention window and
// registers a job for each. Invoked once at process start.
func (s *Scheduler) Bootstrap(ctx context.Context) error {
	since := time.Now().Add(-s.retention)
	channels, err := s.channels.FindActiveChannels(ctx, since)
	if err != nil {
		return err
	}
	for _, ch := range channels {
		s.Register(ch)
	}
	log.Printf("Scheduler bootstrapped %d active channels", len(channels))
	return nil
}

// Register schedules a recurring ingestion job for the channel and runs one
// cycle immediately, so a freshly subscribed channel is populated without
// waiting a full interval. Registering an already-registered channel is a
// no-op: one channel never gets two timers.
func (s *Scheduler) Register(ch models.Channel) {
	s.mu.Lock()
	if _, ok := s.jobs[ch.ID]; ok {
		s.mu.Unlock()
		return
	}

	minutes := ch.FetchIntervalMinutes
	if minutes <= 0 {
		minutes = DefaultFetchIntervalMinutes
	}
	interval := time.Duration(minutes) * time.Minute

	j := &job{channel: ch}
	j.entry = s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() { s.run(j) }))
	s.jobs[ch.ID] = j
	s.mu.Unlock()

	log.Printf("Job scheduled for %s, runs every %s", ch.FeedURL, interval)
	go s.run(j)
}

// Unregister stops the channel's timer and forgets the job.
func (s *Scheduler) Unregister(channelID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[channelID]
	if !ok {
		return
	}
	s.cron.Remove(j.entry)
	delete(s.jobs, channelID)
}

// Registered reports whether a job exists for the channel.
func (s *Scheduler) Registered(channelID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[channelID]
	return ok
}

// run executes one tick. A tick arriving while the previous cycle for the
// same channel is still in flight is dropped, not queued: backpressure for a
// hanging source is bounded resource usage, at the price of missed ticks.
func (s *Scheduler) run(j *job) {
	if !j.inflight.CompareAndSwap(false, true) {
		log.Printf("Dropping tick for channel %d: previous cycle still in flight", j.channel.ID)
		return
	}
	defer j.inflight.Store(false)

	// The per-channel boundary: nothing escapes to other channels' timers or
	// the process.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in cycle for channel %d: %v", j.channel.ID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.cycleTimeout)
	defer cancel()
	s.runCycle(ctx, j.channel)
}

func (s *Scheduler) runCycle(ctx context.Context, ch models.Channel) {
	res, err := s.fetcher.Fetch(ctx, ch.FeedURL)
	if err != nil {
		log.Printf("Error fetching feed %s for channel %d: %v", ch.FeedURL, ch.ID, err)
		return
	}

	newItems, err := s.ingestor.Ingest(ctx, ch, res)
	if err != nil {
		log.Printf("Error ingesting channel %d: %v", ch.ID, err)
		return
	}

	s.notifier.MaybeNotify(ctx, ch, newItems)
	log.Printf("Completed cycle for %s: %d items, %d new", ch.FeedURL, len(res.Items), len(newItems))
}
