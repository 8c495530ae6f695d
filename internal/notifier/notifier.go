package notifier

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"tico/internal/config"
	"tico/internal/logging"
	"tico/internal/sched"
	"tico/internal/store"
)

// sender posts one rendered message to the messaging channel.
type sender interface {
	SendMessage(ctx context.Context, text string) error
}

// Notifier publishes article summaries at the configured trigger times.
type Notifier struct {
	cfg      *config.Config
	store    *store.Store
	sender   sender
	triggers *sched.TriggerTimes
	logger   *slog.Logger

	now func() time.Time
}

// Option customizes the notifier.
type Option func(*Notifier)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) {
		n.now = now
	}
}

// New constructs a notifier.
func New(cfg *config.Config, st *store.Store, snd sender, triggers *sched.TriggerTimes, logger *slog.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		cfg:      cfg,
		store:    st,
		sender:   snd,
		triggers: triggers,
		logger:   logging.NewComponentLogger(logger, "notifier"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Run executes one immediate cycle to catch up after a restart, then sleeps
// to each trigger time in refined quanta until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) error {
	n.logger.Info("starting notifier")

	quantum := time.Duration(n.cfg.Notifier.MaxInactivityInterval) * time.Second

	if err := n.RunCycle(ctx, n.now()); err != nil && ctx.Err() == nil {
		n.logger.Error("notifier cycle failed", logging.Error(err))
	}

	for {
		if ctx.Err() != nil {
			break
		}
		next := n.triggers.Next(n.now())
		n.logger.Info("sleeping until next trigger", logging.Time("trigger", next))
		if err := sched.SleepUntil(ctx, next, quantum); err != nil {
			break
		}
		if err := n.RunCycle(ctx, next); err != nil && ctx.Err() == nil {
			n.logger.Error("notifier cycle failed", logging.Error(err))
		}
	}

	n.logger.Info("notifier shutdown complete")
	return nil
}

// RunCycle publishes the eligible articles for the cycle running at trigger.
// Messages go out strictly in ascending publication-timestamp order; each
// send is recorded in its own transaction before the next message.
func (n *Notifier) RunCycle(ctx context.Context, trigger time.Time) error {
	shift := time.Duration(n.cfg.Notifier.WindowShift) * time.Second
	window := n.triggers.WindowAt(trigger, shift)

	retention := time.Duration(n.cfg.Notifier.SentRetentionHours) * time.Hour
	pruned, err := n.store.PruneSentLog(ctx, n.now().Add(-retention))
	if err != nil {
		return err
	}
	if pruned > 0 {
		n.logger.Debug("pruned sent log", logging.Int64("rows", pruned))
	}

	candidates, err := n.store.CandidatesToSend(ctx, window.From, window.To)
	if err != nil {
		return err
	}
	n.logger.Info("notifier cycle",
		logging.Time("window_from", window.From),
		logging.Time("window_to", window.To),
		logging.Int("candidates", len(candidates)),
	)

	delay := time.Duration(n.cfg.Notifier.MessageDelay) * time.Second
	for i, candidate := range candidates {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if sent := n.sendCandidate(ctx, candidate); sent && i < len(candidates)-1 {
			if err := sched.Sleep(ctx, delay, sched.DefaultQuantum); err != nil {
				return err
			}
		}
	}
	return nil
}

// sendCandidate loads the summary, formats, sends with retries, and records
// the send. A failed send leaves no sent-log row, so the next trigger
// retries while the article is still in-window.
func (n *Notifier) sendCandidate(ctx context.Context, candidate store.Candidate) bool {
	articleLogger := n.logger.With(logging.Int64(logging.FieldArticle, candidate.ArticleID))

	path, ok, err := n.store.SummaryPath(ctx, candidate.ArticleID, n.cfg.Notifier.PublishLanguage)
	if err != nil {
		articleLogger.Error("failed to query summary", logging.Error(err))
		return false
	}
	if !ok {
		articleLogger.Warn("no summary for publish language, skipping",
			logging.String("lang", n.cfg.Notifier.PublishLanguage))
		return false
	}

	summary, err := os.ReadFile(path)
	if err != nil {
		articleLogger.Error("failed to read summary file", logging.Error(err))
		return false
	}

	message := formatMessage(
		strings.TrimSpace(string(summary)),
		candidate.PublishedAt.In(n.cfg.Location()),
		candidate.URL,
		candidate.Category,
	)

	if !n.sendWithRetries(ctx, message, articleLogger) {
		articleLogger.Error("message not sent, will retry next trigger while in window")
		return false
	}

	if err := n.store.RecordSent(ctx, candidate.ArticleID, candidate.PublishedAt); err != nil {
		articleLogger.Error("failed to record sent article", logging.Error(err))
		return true
	}
	articleLogger.Info("article sent")
	return true
}

func (n *Notifier) sendWithRetries(ctx context.Context, message string, articleLogger *slog.Logger) bool {
	attempts := n.cfg.Notifier.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		err := n.sender.SendMessage(ctx, message)
		if err == nil {
			return true
		}
		articleLogger.Warn("send attempt failed",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Error(err),
		)
		if attempt == attempts || ctx.Err() != nil {
			return false
		}
		if err := sched.Sleep(ctx, time.Second, sched.DefaultQuantum); err != nil {
			return false
		}
	}
	return false
}
