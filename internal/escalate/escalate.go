// Package escalate handles critical events: the .critical. file variant
// and the Slack webhook notification with its cooldown, fallback-write
// and bounded-retry state machine. Escalation failures never propagate
// to the original write caller.
package escalate

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/MadlinksCoding/routelog/internal/errs"
	"github.com/MadlinksCoding/routelog/internal/errsink"
	"github.com/MadlinksCoding/routelog/internal/pathsafe"
	"github.com/MadlinksCoding/routelog/internal/storage"
	"github.com/MadlinksCoding/routelog/internal/timefmt"
	"github.com/rs/zerolog"
)

const (
	// failureThreshold consecutive webhook failures engage the cooldown.
	failureThreshold = 3
	// cooldownWindow suppresses webhook sends after the threshold.
	cooldownWindow = 60 * time.Second
	// fallbackCooldownWindow suppresses fallback writes and retry
	// scheduling after a fallback write itself fails.
	fallbackCooldownWindow = 60 * time.Second
	// retryBase is the first retry delay; it doubles per attempt.
	retryBase = 5 * time.Second

	// retryAttemptsKey tracks per-entry retry count across reschedules.
	retryAttemptsKey = "__slackRetryAttempts"

	// failureCode tags slack-delivery failures in fallback records.
	failureCode = "SLACK_DELIVERY_FAILED"
)

// Escalator owns the process-wide Slack failure state. All mutation goes
// through its mutex.
type Escalator struct {
	mu                    sync.Mutex
	failures              int
	cooldownUntil         time.Time
	fallbackCooldownUntil time.Time

	client     WebhookClient
	writer     *storage.Writer
	sched      Scheduler
	sink       errsink.Sink
	clock      timefmt.Clock
	log        zerolog.Logger
	timeout    time.Duration
	maxRetries int

	criticalRoot string
}

// Config wires the escalator's collaborators.
type Config struct {
	Client       WebhookClient
	Writer       *storage.Writer
	Scheduler    Scheduler
	Sink         errsink.Sink
	Clock        timefmt.Clock
	Log          zerolog.Logger
	Timeout      time.Duration
	MaxRetries   int
	CriticalRoot string
}

// New builds an escalator. Scheduler and Clock default to real time.
func New(cfg Config) *Escalator {
	if cfg.Scheduler == nil {
		cfg.Scheduler = TimerScheduler{}
	}
	if cfg.Clock == nil {
		cfg.Clock = timefmt.SystemClock{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Escalator{
		client:       cfg.Client,
		writer:       cfg.Writer,
		sched:        cfg.Scheduler,
		sink:         cfg.Sink,
		clock:        cfg.Clock,
		log:          cfg.Log,
		timeout:      cfg.Timeout,
		maxRetries:   cfg.MaxRetries,
		criticalRoot: cfg.CriticalRoot,
	}
}

// CriticalVariant inserts the .critical. infix before the extension.
func CriticalVariant(relPath string) string {
	ext := path.Ext(relPath)
	return strings.TrimSuffix(relPath, ext) + ".critical" + ext
}

// WriteCriticalFile persists the .critical. variant of the record.
// When the critical root lies inside the primary log root (or none is
// configured), the write goes through the storage writer with its full
// retry/fallback contract; an independent critical root is written
// directly so a failing primary tree cannot take the critical trail
// down with it.
func (e *Escalator) WriteCriticalFile(ctx context.Context, relPath string, payload any) (string, error) {
	critical := CriticalVariant(relPath)
	if e.criticalRoot == "" || isWithin(e.writer.Root(), e.criticalRoot) {
		return e.writer.WriteToStorage(ctx, critical, payload)
	}
	rel, err := pathsafe.EnsureRelative(critical)
	if err != nil {
		return "", err
	}
	if err := storage.AppendAt(e.criticalRoot, rel, payload); err != nil {
		return "", errs.Wrap(errs.Write, err, "critical root write")
	}
	return rel, nil
}

// SendToSlackCritical notifies the webhook about a critical entry.
// Inside the cooldown window it returns immediately without touching the
// network. Failures feed the cooldown/fallback/retry state machine; they
// are never returned to the caller.
func (e *Escalator) SendToSlackCritical(entry map[string]any) {
	if e.client == nil || !e.canSend() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	err := e.client.Critical(ctx, entry)
	cancel()

	if err == nil {
		e.mu.Lock()
		e.failures = 0
		e.mu.Unlock()
		return
	}
	// Timeouts and cancellations count the same as rejections.
	e.recordFailure(entry, err)
}

// canSend is the global cooldown gate.
func (e *Escalator) canSend() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.clock.Now().Before(e.cooldownUntil)
}

// recordFailure advances the failure state machine: counter, cooldown,
// fallback write and bounded retry scheduling.
func (e *Escalator) recordFailure(entry map[string]any, cause error) {
	now := e.clock.Now()

	e.mu.Lock()
	e.failures++
	if e.failures >= failureThreshold {
		e.cooldownUntil = now.Add(cooldownWindow)
		e.failures = 0
	}
	fallbackSuppressed := now.Before(e.fallbackCooldownUntil)
	e.mu.Unlock()

	e.sink.AddError("slack delivery failed", map[string]any{
		"flag": entry["flag"], "error": cause.Error(), "code": failureCode,
	})
	if fallbackSuppressed {
		return
	}

	_, fbErr := e.writer.WriteFallback(context.Background(), storage.NamespaceSlack, map[string]any{
		"flag":      entry["flag"],
		"error":     cause.Error(),
		"code":      failureCode,
		"timestamp": timefmt.Timestamp(now),
	})
	if fbErr != nil {
		e.mu.Lock()
		e.fallbackCooldownUntil = now.Add(fallbackCooldownWindow)
		e.mu.Unlock()
	}

	attempts, _ := entry[retryAttemptsKey].(int)
	if attempts >= e.maxRetries {
		e.log.Warn().Any("flag", entry["flag"]).Int("attempts", attempts).Msg("slack retries exhausted")
		return
	}
	entry[retryAttemptsKey] = attempts + 1
	delay := retryBase << attempts
	e.sched.AfterFunc(delay, func() { e.SendToSlackCritical(entry) })
}

// State returns a snapshot of the failure state for tests and the debug
// surface.
func (e *Escalator) State() (failures int, cooldownUntil, fallbackCooldownUntil time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failures, e.cooldownUntil, e.fallbackCooldownUntil
}

// isWithin reports whether child is root or lies under it.
func isWithin(root, child string) bool {
	root = strings.TrimSuffix(pathsafe.Normalize(root), "/")
	child = strings.TrimSuffix(pathsafe.Normalize(child), "/")
	return child == root || strings.HasPrefix(child, root+"/")
}
