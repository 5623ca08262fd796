package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"livechat-bot/models"
	"livechat-bot/utils"

	"github.com/rs/zerolog"
)

// QueueStore is the queue persistence the scheduler drains.
type QueueStore interface {
	NextDueItem(ctx context.Context, now time.Time) (*models.QueueItem, error)
	PostponeDueItems(ctx context.Context, guildID string, now time.Time, delay time.Duration) (int64, error)
	DeleteQueueItem(ctx context.Context, id int64) error
}

// BlacklistChecker tells whether an author's items must be replaced.
type BlacklistChecker interface {
	IsBlacklisted(ctx context.Context, userID, guildID string) (bool, error)
}

// Publisher pushes a payload to every display client of a guild.
type Publisher interface {
	Publish(ctx context.Context, guildID string, payload models.DisplayPayload) error
}

type Config struct {
	Interval       time.Duration
	RetryDelay     time.Duration
	SafetyMargin   time.Duration
	PlaceholderURL string
}

// OutcomeKind says what a tick did.
type OutcomeKind int

const (
	Idle OutcomeKind = iota
	Retried
	Dispatched
)

func (k OutcomeKind) String() string {
	switch k {
	case Retried:
		return "retried"
	case Dispatched:
		return "dispatched"
	default:
		return "idle"
	}
}

// Outcome describes a completed tick.
type Outcome struct {
	Kind        OutcomeKind
	ItemID      int64
	GuildID     string
	Type        models.QueueType
	Duration    int // seconds applied to the guild, for dispatched items
	Substituted bool
}

// Scheduler delivers queued items one at a time, never overlapping two
// displays of the same guild.
type Scheduler struct {
	cfg       Config
	queue     QueueStore
	lock      *AudienceLock
	blacklist BlacklistChecker
	publisher Publisher
	clock     utils.Clock
	log       zerolog.Logger

	lastTick atomic.Int64

	stopOnce sync.Once
	stop     chan struct{}
}

func New(cfg Config, queue QueueStore, lock *AudienceLock, blacklist BlacklistChecker, publisher Publisher, clock utils.Clock, log zerolog.Logger) *Scheduler {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	return &Scheduler{
		cfg:       cfg,
		queue:     queue,
		lock:      lock,
		blacklist: blacklist,
		publisher: publisher,
		clock:     clock,
		log:       log.With().Str("component", "scheduler").Logger(),
		stop:      make(chan struct{}),
	}
}

// Tick handles at most one due item. On error nothing about the item has changed.
func (s *Scheduler) Tick(ctx context.Context) (Outcome, error) {
	now := s.clock.Now()

	item, err := s.queue.NextDueItem(ctx, now)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read next item: %w", err)
	}
	if item == nil {
		return Outcome{Kind: Idle}, nil
	}

	out := Outcome{ItemID: item.ID, GuildID: item.GuildID, Type: item.Type}

	busy, err := s.lock.IsBusy(ctx, item.GuildID, now)
	if err != nil {
		return out, fmt.Errorf("failed to read guild %s: %w", item.GuildID, err)
	}
	if busy {
		// The guild's due items move past now, so other guilds' items come first.
		if _, err := s.queue.PostponeDueItems(ctx, item.GuildID, now, s.cfg.RetryDelay); err != nil {
			return out, fmt.Errorf("failed to postpone items of guild %s: %w", item.GuildID, err)
		}
		out.Kind = Retried
		return out, nil
	}

	payload := item.Payload()
	if item.AuthorID != nil {
		listed, err := s.blacklist.IsBlacklisted(ctx, *item.AuthorID, item.GuildID)
		if err != nil {
			return out, fmt.Errorf("failed to check blacklist: %w", err)
		}
		if listed {
			payload = substitute(*item, s.cfg.PlaceholderURL)
			out.Substituted = true
		}
	}

	until := now.Add(time.Duration(item.Duration)*time.Second + s.cfg.SafetyMargin)
	if err := s.lock.Reserve(ctx, item.GuildID, until); err != nil {
		return out, fmt.Errorf("failed to reserve guild %s: %w", item.GuildID, err)
	}

	if err := s.publisher.Publish(ctx, item.GuildID, payload); err != nil {
		return out, fmt.Errorf("failed to publish item %d: %w", item.ID, err)
	}

	if err := s.queue.DeleteQueueItem(ctx, item.ID); err != nil {
		return out, fmt.Errorf("failed to delete item %d: %w", item.ID, err)
	}

	out.Kind = Dispatched
	out.Duration = item.Duration
	return out, nil
}

// Run ticks until ctx is done or Stop is called. The next tick is armed only
// after the previous one has returned.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.cfg.Interval).Msg("scheduler started")
	defer s.log.Info().Msg("scheduler stopped")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-timer.C:
		}

		s.runTick(ctx)
		timer.Reset(s.cfg.Interval)
	}
}

// Stop ends Run. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// LastTick returns when the last tick finished, or the zero time.
func (s *Scheduler) LastTick() time.Time {
	ns := s.lastTick.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (s *Scheduler) runTick(ctx context.Context) {
	start := time.Now()
	out, err := s.Tick(ctx)
	tickDuration.Observe(time.Since(start).Seconds())
	s.lastTick.Store(time.Now().UnixNano())

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		tickErrors.Inc()
		s.log.Error().Err(err).Int64("item", out.ItemID).Str("guild", out.GuildID).Msg("tick abandoned")
		return
	}

	ticksTotal.WithLabelValues(out.Kind.String()).Inc()
	switch out.Kind {
	case Dispatched:
		dispatchedTotal.WithLabelValues(string(out.Type)).Inc()
		if out.Substituted {
			substitutedTotal.Inc()
			s.log.Debug().Int64("item", out.ItemID).Str("guild", out.GuildID).Msg("blacklisted author, placeholder published")
		}
		s.log.Debug().Int64("item", out.ItemID).Str("guild", out.GuildID).Int("duration", out.Duration).Msg("item dispatched")
	case Retried:
		s.log.Trace().Int64("item", out.ItemID).Str("guild", out.GuildID).Msg("guild busy, item postponed")
	}
}
