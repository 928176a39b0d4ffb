// Package logger is the engine entry point: it wires the rate limiter,
// route resolver, placeholder engine, encryption codec, storage writer
// and critical escalation into the writeLog flow. All shared state
// (caches, counters, cooldowns) lives on the Logger instance for the
// lifetime of the process.
package logger

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"strings"
	"time"

	"github.com/MadlinksCoding/routelog/internal/cache"
	"github.com/MadlinksCoding/routelog/internal/config"
	"github.com/MadlinksCoding/routelog/internal/encryption"
	"github.com/MadlinksCoding/routelog/internal/errs"
	"github.com/MadlinksCoding/routelog/internal/errsink"
	"github.com/MadlinksCoding/routelog/internal/escalate"
	"github.com/MadlinksCoding/routelog/internal/fdpool"
	"github.com/MadlinksCoding/routelog/internal/model"
	"github.com/MadlinksCoding/routelog/internal/placeholder"
	"github.com/MadlinksCoding/routelog/internal/ratelimit"
	"github.com/MadlinksCoding/routelog/internal/reader"
	"github.com/MadlinksCoding/routelog/internal/route"
	"github.com/MadlinksCoding/routelog/internal/storage"
	"github.com/MadlinksCoding/routelog/internal/timefmt"
	"github.com/rs/zerolog"
)

// Options overrides collaborator wiring, mainly for tests. Nil fields
// take the production defaults.
type Options struct {
	Clock     timefmt.Clock
	Webhook   escalate.WebhookClient
	Scheduler escalate.Scheduler
	Sink      errsink.Sink
	// Routes bypasses the route-config file when non-nil.
	Routes model.RouteConfig
}

// Logger is the long-lived engine instance.
type Logger struct {
	cfg     *config.Config
	console zerolog.Logger

	resolver     *route.Resolver
	placeholders *placeholder.Engine
	caches       *cache.Manager
	limiter      *ratelimit.Limiter
	pool         *fdpool.Pool
	codec        *encryption.Codec
	writer       *storage.Writer
	escalator    *escalate.Escalator
	reader       *reader.Reader
	sink         errsink.Sink
	clock        timefmt.Clock
}

// New builds the engine from config. A missing or malformed route-config
// file degrades to fallback routing for every flag; it does not fail
// construction.
func New(cfg *config.Config, opts *Options) (*Logger, error) {
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}

	console := zerolog.Nop()
	if cfg.Logging.Console {
		level, err := zerolog.ParseLevel(cfg.Logging.Level)
		if err != nil {
			level = zerolog.InfoLevel
		}
		console = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).With().Timestamp().Str("env", cfg.Primary.Env).Logger()
	}

	clock := opts.Clock
	if clock == nil {
		clock = timefmt.SystemClock{}
	}
	sink := opts.Sink
	if sink == nil {
		sink = errsink.NewMemory(console)
	}

	routes := opts.Routes
	if routes == nil && cfg.Logging.Routes != "" {
		loaded, err := route.LoadFile(cfg.Logging.Routes)
		if err != nil {
			sink.AddError("route config load failed", map[string]any{
				"path": cfg.Logging.Routes, "error": err.Error(),
			})
		} else {
			routes = loaded
		}
	}

	caches := cache.NewManager()
	pool := fdpool.New(cfg.Storage.Descriptors)
	writer := storage.NewWriter(cfg.Storage, pool, sink, console, clock)
	codec := encryption.NewCodec(cfg.Encryption, sink)

	webhook := opts.Webhook
	if webhook == nil && cfg.Slack.Webhook != "" {
		webhook = escalate.NewSlackClient(cfg.Slack.Webhook)
	}
	escalator := escalate.New(escalate.Config{
		Client:       webhook,
		Writer:       writer,
		Scheduler:    opts.Scheduler,
		Sink:         sink,
		Clock:        clock,
		Log:          console,
		Timeout:      time.Duration(cfg.Slack.TimeoutMS) * time.Millisecond,
		MaxRetries:   cfg.Slack.Retries,
		CriticalRoot: cfg.Storage.Critical,
	})

	return &Logger{
		cfg:          cfg,
		console:      console,
		resolver:     route.NewResolver(routes, caches.Routes, sink, clock),
		placeholders: placeholder.NewEngine(caches.Placeholders, clock),
		caches:       caches,
		limiter:      ratelimit.New(cfg.Storage.RateLimit, ratelimit.DefaultWindow, nil),
		pool:         pool,
		codec:        codec,
		writer:       writer,
		escalator:    escalator,
		reader:       reader.New(codec, sink),
		sink:         sink,
		clock:        clock,
	}, nil
}

// WriteLog routes, encrypts and persists one event. Returns the relative
// path written, or "" with a nil error when logging is disabled or the
// event degraded to a fallback write. Validation, path-security,
// rate-limit and permission errors surface to the caller; everything
// else recovers locally.
func (l *Logger) WriteLog(ctx context.Context, ev model.LogEvent) (string, error) {
	if !l.cfg.Logging.Enabled {
		return "", nil
	}
	if err := validateEvent(ev); err != nil {
		return "", err
	}
	if err := l.limiter.Allow(); err != nil {
		return "", err
	}

	rt := l.resolver.GetRouteByFlag(ev.Flag)
	resolved := l.placeholders.ResolvePath(rt.Path, l.tokenData(ev))
	l.caches.TrimAllIfNeeded()

	if !resolved.OK() {
		// Unresolvable template: exactly one fallback write, no primary.
		rel, err := l.writer.WriteFallback(ctx, storage.NamespaceMissingPath, map[string]any{
			"flag":                ev.Flag,
			"template":            rt.Path,
			"missingPlaceholders": resolved.Missing,
			"timestamp":           timefmt.Timestamp(l.clock.Now()),
		})
		if err != nil {
			return "", errs.Wrap(errs.Write, err, "missing-placeholder fallback")
		}
		l.console.Warn().Str("flag", ev.Flag).Strs("missing", resolved.Missing).Msg("route template unresolved")
		return rel, nil
	}

	line, err := l.buildRecord(ev)
	if err != nil {
		return "", err
	}

	rel := l.stampedPath(resolved.Path)
	written, err := l.writer.WriteToStorage(ctx, rel, line)
	primaryFailed := err != nil

	if ev.Critical || rt.Critical {
		if _, cerr := l.escalator.WriteCriticalFile(ctx, rel, line); cerr != nil {
			l.sink.AddError("critical file write failed", map[string]any{
				"flag": ev.Flag, "error": cerr.Error(),
			})
		}
		l.escalator.SendToSlackCritical(map[string]any{
			"flag":     ev.Flag,
			"message":  ev.Message,
			"action":   ev.Action,
			"path":     rel,
			"critical": true,
		})
	}

	if primaryFailed {
		return "", err
	}
	l.console.WithLevel(consoleLevel(ev)).
		Str("flag", ev.Flag).Str("path", written).Msg(ev.Message)
	return written, nil
}

// WriteLogBatch persists many events as one newline-delimited write to
// relPath, with the batch fallback contract.
func (l *Logger) WriteLogBatch(ctx context.Context, relPath string, events []model.LogEvent) (string, error) {
	if !l.cfg.Logging.Enabled {
		return "", nil
	}
	if len(events) == 0 {
		return "", errs.New(errs.Validation, "batch is empty")
	}
	if err := l.limiter.Allow(); err != nil {
		return "", err
	}
	payloads := make([]any, 0, len(events))
	for _, ev := range events {
		if err := validateEvent(ev); err != nil {
			return "", err
		}
		line, err := l.buildRecord(ev)
		if err != nil {
			return "", err
		}
		payloads = append(payloads, line)
	}
	return l.writer.WriteBatch(ctx, l.stampedPath(relPath), payloads)
}

// stampedPath memoizes the day-stamped variant of a resolved path in
// the shared path cache; entries go stale at day rollover and simply
// miss on the new key.
func (l *Logger) stampedPath(resolvedPath string) string {
	day := timefmt.DayStamp(l.clock.Now())
	key := resolvedPath + "\x00" + day
	if v, ok := l.caches.Paths.Get(key); ok {
		return v.(string)
	}
	rel := decorateFilename(resolvedPath, l.clock.Now())
	l.caches.Paths.Set(key, rel)
	return rel
}

// ReadLogFile parses a persisted file; see the reader package.
func (l *Logger) ReadLogFile(path string, opts reader.Options) ([]map[string]any, error) {
	return l.reader.ReadLogFile(path, opts)
}

// DecryptLogFile decrypts a persisted file to its *_decrypted sibling.
func (l *Logger) DecryptLogFile(path string) (string, error) {
	return l.reader.DecryptLogFile(path)
}

// Sink exposes the error collector for the observability surface.
func (l *Logger) Sink() errsink.Sink { return l.sink }

// StorageRoot returns the primary log root, for read endpoints that
// resolve relative paths.
func (l *Logger) StorageRoot() string { return l.writer.Root() }

// Resolver exposes the route resolver (hot reload wiring).
func (l *Logger) Resolver() *route.Resolver { return l.resolver }

// buildRecord assembles and serializes the on-disk record, encrypting
// the data payload when a key is configured.
func (l *Logger) buildRecord(ev model.LogEvent) (string, error) {
	data := ev.Data
	if data == nil {
		data = map[string]any{}
	}
	encrypted, info := l.codec.EncryptData(data)
	rec := model.LogRecord{
		SchemaVersion: model.SchemaVersion,
		Timestamp:     timefmt.Timestamp(l.clock.Now()),
		Flag:          ev.Flag,
		Level:         ev.Level(),
		Message:       ev.Message,
		Data:          encrypted,
		Encryption:    info,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return "", errs.Wrap(errs.Validation, err, "serialize record")
	}
	return string(line), nil
}

// tokenData merges builtin tokens under the event data for placeholder
// resolution. Event data wins on conflicts.
func (l *Logger) tokenData(ev model.LogEvent) map[string]any {
	tokens := map[string]any{
		"flag":  route.SanitizeFlag(ev.Flag),
		"level": ev.Level(),
		"env":   l.cfg.Primary.Env,
		"date":  timefmt.FormatDate(l.clock.Now(), timefmt.DefaultDatePattern),
	}
	if ev.Action != "" {
		tokens["action"] = ev.Action
	}
	for k, v := range ev.Data {
		tokens[k] = v
	}
	return tokens
}

// validateEvent enforces the size and shape bounds checked before any
// I/O.
func validateEvent(ev model.LogEvent) error {
	if strings.TrimSpace(ev.Flag) == "" {
		return errs.New(errs.Validation, "event flag is required")
	}
	if len(ev.Message) > model.MaxMessageBytes {
		return errs.New(errs.Validation, "message exceeds %d bytes", model.MaxMessageBytes)
	}
	if ev.Data != nil {
		raw, err := json.Marshal(ev.Data)
		if err != nil {
			return errs.Wrap(errs.Validation, err, "event data is not serializable")
		}
		if len(raw) > model.MaxDataBytes {
			return errs.New(errs.Validation, "serialized data exceeds %d bytes", model.MaxDataBytes)
		}
	}
	return nil
}

// decorateFilename stamps the UTC day into the filename so same-day
// writes append to one file (logs/test.log → logs/test_20260831.log).
func decorateFilename(relPath string, now time.Time) string {
	ext := path.Ext(relPath)
	return strings.TrimSuffix(relPath, ext) + "_" + timefmt.DayStamp(now) + ext
}

// consoleLevel maps event severity onto the console logger.
func consoleLevel(ev model.LogEvent) zerolog.Level {
	if ev.Critical {
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}
