// Package storage persists log records to the filesystem. Writes go
// through the descriptor pool, retry transient failures with exponential
// backoff, rotate oversized files aside, and degrade to a fallback write
// under the fallback root when retries are exhausted. Permission errors
// are never retried or degraded: they surface misconfiguration directly.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MadlinksCoding/routelog/internal/config"
	"github.com/MadlinksCoding/routelog/internal/errs"
	"github.com/MadlinksCoding/routelog/internal/errsink"
	"github.com/MadlinksCoding/routelog/internal/fdpool"
	"github.com/MadlinksCoding/routelog/internal/pathsafe"
	"github.com/MadlinksCoding/routelog/internal/sanitize"
	"github.com/MadlinksCoding/routelog/internal/timefmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/valyala/bytebufferpool"
)

// Fallback namespaces under the fallback root.
const (
	NamespaceWriteErrors      = "write_errors"
	NamespaceBatchWriteErrors = "batch_write_errors"
	NamespaceMissingPath      = "missing_path"
	NamespaceSlack            = "slack"
)

const (
	backoffBase = 100 * time.Millisecond
	backoffMax  = 5 * time.Second
)

// Writer is the durable persistence layer.
type Writer struct {
	root         string
	fallbackRoot string
	pool         *fdpool.Pool
	attempts     int
	rotateBytes  int64
	writeTimeout time.Duration

	sink  errsink.Sink
	log   zerolog.Logger
	clock timefmt.Clock
}

// NewWriter builds a writer from storage config, sharing the descriptor
// pool with every other write path in the process.
func NewWriter(cfg config.StorageConfig, pool *fdpool.Pool, sink errsink.Sink, log zerolog.Logger, clock timefmt.Clock) *Writer {
	if clock == nil {
		clock = timefmt.SystemClock{}
	}
	return &Writer{
		root:         cfg.Root,
		fallbackRoot: cfg.Fallback,
		pool:         pool,
		attempts:     cfg.Retries,
		rotateBytes:  cfg.RotateBytes,
		writeTimeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		sink:         sink,
		log:          log,
		clock:        clock,
	}
}

// Root returns the primary log root.
func (w *Writer) Root() string { return w.root }

// WriteToStorage appends payload (a non-empty string, bytes, or a plain
// object) to relPath under the primary root. Returns the relative path
// actually written: the primary path, or the fallback path when retries
// were exhausted on a non-permission error and the fallback write
// succeeded.
func (w *Writer) WriteToStorage(ctx context.Context, relPath string, payload any) (string, error) {
	body, err := serializePayload(payload)
	if err != nil {
		return "", err
	}
	rel, err := pathsafe.EnsureRelative(relPath)
	if err != nil {
		return "", err
	}

	abs := filepath.Join(w.root, filepath.FromSlash(rel))
	w.rotateIfNeeded(abs)

	writeErr := w.writeWithRetries(ctx, abs, body)
	if writeErr == nil {
		return rel, nil
	}
	if errs.Is(writeErr, errs.Permission) {
		return "", writeErr
	}

	// Transient failure after all retries: degrade to a fallback write
	// carrying the payload plus failure metadata. A failing fallback
	// write propagates the error chain.
	fallbackRel, fbErr := w.WriteFallback(ctx, NamespaceWriteErrors, map[string]any{
		"payload":      string(body),
		"originalPath": rel,
		"error":        writeErr.Error(),
		"timestamp":    timefmt.Timestamp(w.clock.Now()),
	})
	if fbErr != nil {
		return "", errs.Wrap(errs.Write, writeErr, "primary and fallback writes failed (fallback: %v)", fbErr)
	}
	w.log.Warn().Str("path", rel).Str("fallback", fallbackRel).Msg("write degraded to fallback")
	return fallbackRel, nil
}

// WriteBatch concatenates records into one newline-delimited write.
// Same primary/fallback contract as WriteToStorage, with fallbacks under
// batch_write_errors.
func (w *Writer) WriteBatch(ctx context.Context, relPath string, payloads []any) (string, error) {
	if len(payloads) == 0 {
		return "", errs.New(errs.Validation, "batch is empty")
	}
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	for _, p := range payloads {
		body, err := serializePayload(p)
		if err != nil {
			return "", err
		}
		buf.Write(body)
		if len(body) == 0 || body[len(body)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}

	rel, err := pathsafe.EnsureRelative(relPath)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(w.root, filepath.FromSlash(rel))
	w.rotateIfNeeded(abs)

	body := append([]byte(nil), buf.B...)
	writeErr := w.writeWithRetries(ctx, abs, body)
	if writeErr == nil {
		return rel, nil
	}
	if errs.Is(writeErr, errs.Permission) {
		return "", writeErr
	}
	fallbackRel, fbErr := w.WriteFallback(ctx, NamespaceBatchWriteErrors, map[string]any{
		"payload":      string(body),
		"originalPath": rel,
		"records":      len(payloads),
		"error":        writeErr.Error(),
		"timestamp":    timefmt.Timestamp(w.clock.Now()),
	})
	if fbErr != nil {
		return "", errs.Wrap(errs.Write, writeErr, "batch primary and fallback writes failed (fallback: %v)", fbErr)
	}
	return fallbackRel, nil
}

// WriteFallback persists a record under <fallback-root>/<namespace>/ with
// a timestamp plus random-suffix name to avoid collisions. Single
// attempt: fallback writes are themselves the degraded path.
func (w *Writer) WriteFallback(ctx context.Context, namespace string, record map[string]any) (string, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return "", errs.Wrap(errs.Write, err, "serialize fallback record")
	}
	name := fmt.Sprintf("%d_%s.log", w.clock.Now().UnixMilli(), uuid.NewString()[:8])
	rel := namespace + "/" + name
	abs := filepath.Join(w.fallbackRoot, namespace, name)
	if err := w.writeOnce(ctx, abs, body); err != nil {
		w.sink.AddError("fallback write failed", map[string]any{
			"namespace": namespace, "error": err.Error(),
		})
		return "", err
	}
	return rel, nil
}

// writeWithRetries drives the attempt/backoff state machine: bounded
// attempts, exponential delay capped at backoffMax, cooperative waits.
func (w *Writer) writeWithRetries(ctx context.Context, abs string, body []byte) error {
	var last error
	for attempt := 0; attempt < w.attempts; attempt++ {
		if attempt > 0 {
			delay := backoffBase << (attempt - 1)
			if delay > backoffMax {
				delay = backoffMax
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return errs.Wrap(errs.Write, ctx.Err(), "write cancelled during backoff")
			}
		}
		err := w.writeOnce(ctx, abs, body)
		if err == nil {
			return nil
		}
		if errs.Is(err, errs.Permission) {
			return err
		}
		last = err
		w.log.Debug().Int("attempt", attempt+1).Str("path", abs).Err(err).Msg("write attempt failed")
	}
	return errs.Wrap(errs.Write, last, "exhausted %d write attempts", w.attempts)
}

// writeOnce performs a single append through the descriptor pool with the
// hard per-write timeout. The pool slot is released on every exit path.
func (w *Writer) writeOnce(ctx context.Context, abs string, body []byte) error {
	if err := w.pool.Acquire(ctx); err != nil {
		return errs.Wrap(errs.Write, err, "descriptor pool acquire")
	}
	defer w.pool.Release()

	done := make(chan error, 1)
	go func() { done <- appendFile(abs, body) }()

	timer := time.NewTimer(w.writeTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return classify(err)
	case <-timer.C:
		return errs.New(errs.Write, "write to %s timed out after %v", abs, w.writeTimeout)
	case <-ctx.Done():
		return errs.Wrap(errs.Write, ctx.Err(), "write cancelled")
	}
}

// rotateIfNeeded renames the target aside when it exceeds the size
// threshold, so the next append starts a fresh file. Rotation failures
// are audit events; the write proceeds against the oversized file.
func (w *Writer) rotateIfNeeded(abs string) {
	if w.rotateBytes <= 0 {
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.Size() < w.rotateBytes {
		return
	}
	ext := filepath.Ext(abs)
	aside := fmt.Sprintf("%s.%d_%s%s",
		strings.TrimSuffix(abs, ext), w.clock.Now().UnixMilli(), uuid.NewString()[:8], ext)
	if err := os.Rename(abs, aside); err != nil {
		w.sink.AddError("log rotation failed", map[string]any{"path": abs, "error": err.Error()})
		return
	}
	w.log.Info().Str("path", abs).Str("rotated", aside).Int64("bytes", info.Size()).Msg("rotated log file")
}

// serializePayload accepts a non-empty string, raw bytes, or a plain
// object and returns the bytes to append.
func serializePayload(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, errs.New(errs.Validation, "payload string is empty")
		}
		return []byte(v), nil
	case []byte:
		if len(v) == 0 {
			return nil, errs.New(errs.Validation, "payload bytes are empty")
		}
		return v, nil
	default:
		if !sanitize.IsPlainObject(payload) {
			return nil, errs.New(errs.Validation, "payload must be a non-empty string or plain object")
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, errs.Wrap(errs.Validation, err, "serialize payload object")
		}
		return body, nil
	}
}

// AppendAt serializes payload and appends it under root/rel, creating
// parent directories. Used for writes outside the primary root (the
// independent critical root).
func AppendAt(root, rel string, payload any) error {
	body, err := serializePayload(payload)
	if err != nil {
		return err
	}
	return classify(appendFile(filepath.Join(root, filepath.FromSlash(rel)), body))
}

// classify maps filesystem errors into the engine taxonomy. EACCES/EPERM
// become permission errors that callers must see immediately.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrPermission) {
		return errs.Wrap(errs.Permission, err, "permission denied")
	}
	return errs.Wrap(errs.Write, err, "write failed")
}

// appendFile creates parents as needed and appends body plus a trailing
// newline to abs.
func appendFile(abs string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		return err
	}
	if len(body) == 0 || body[len(body)-1] != '\n' {
		if _, err := f.Write([]byte{'\n'}); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}
