package handler

import (
	"path/filepath"
	"strconv"

	"github.com/MadlinksCoding/routelog/internal/logger"
	"github.com/MadlinksCoding/routelog/internal/model"
	"github.com/MadlinksCoding/routelog/internal/pathsafe"
	"github.com/MadlinksCoding/routelog/internal/reader"
	"github.com/MadlinksCoding/routelog/internal/response"
	"github.com/labstack/echo/v4"
)

// LogHandler serves the log write and read endpoints. It depends on the
// engine and Echo context only; the server wires OnLog into its
// recent-logs buffer.
type LogHandler struct {
	Engine *logger.Logger
	OnLog  func(rec map[string]any)
}

type writeLogRequest struct {
	Flag     string         `json:"flag"`
	Message  string         `json:"message"`
	Action   string         `json:"action"`
	Critical bool           `json:"critical"`
	Data     map[string]any `json:"data"`
}

type writeBatchRequest struct {
	Path   string            `json:"path"`
	Events []writeLogRequest `json:"events"`
}

func (r writeLogRequest) event() model.LogEvent {
	return model.LogEvent{
		Flag:     r.Flag,
		Message:  r.Message,
		Action:   r.Action,
		Critical: r.Critical,
		Data:     r.Data,
	}
}

// CreateLog writes one event (POST /logs).
func (h *LogHandler) CreateLog(c echo.Context) error {
	var req writeLogRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid JSON body", err.Error())
	}
	path, err := h.Engine.WriteLog(c.Request().Context(), req.event())
	if err != nil {
		return response.EngineError(c, "write log failed", err)
	}
	if h.OnLog != nil {
		h.OnLog(map[string]any{"flag": req.Flag, "message": req.Message, "path": path})
	}
	return response.Created(c, map[string]any{"path": path}, "")
}

// CreateLogBatch writes many events to one file (POST /logs/batch).
func (h *LogHandler) CreateLogBatch(c echo.Context) error {
	var req writeBatchRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid JSON body", err.Error())
	}
	if req.Path == "" {
		return response.BadRequest(c, "missing 'path'", "batch target path is required")
	}
	events := make([]model.LogEvent, 0, len(req.Events))
	for _, ev := range req.Events {
		events = append(events, ev.event())
	}
	path, err := h.Engine.WriteLogBatch(c.Request().Context(), req.Path, events)
	if err != nil {
		return response.EngineError(c, "write log batch failed", err)
	}
	return response.Created(c, map[string]any{"path": path, "records": len(events)}, "")
}

// ReadLog parses a stored file (GET /logs/read?path=&limit=&decrypt=).
// The path is relative to the primary log root; traversal is rejected.
func (h *LogHandler) ReadLog(c echo.Context) error {
	rel, err := pathsafe.EnsureRelative(c.QueryParam("path"))
	if err != nil {
		return response.EngineError(c, "invalid path", err)
	}
	opts := reader.Options{Decrypt: c.QueryParam("decrypt") == "true"}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return response.BadRequest(c, "invalid 'limit'", "limit must be a non-negative integer")
		}
		opts.Limit = limit
	}
	records, err := h.Engine.ReadLogFile(filepath.Join(h.Engine.StorageRoot(), filepath.FromSlash(rel)), opts)
	if err != nil {
		return response.NotFound(c, "log file not found", err.Error())
	}
	return response.OK(c, map[string]any{"path": rel, "records": records}, "")
}

// ListErrors returns the collected engine errors (GET /errors).
func (h *LogHandler) ListErrors(c echo.Context) error {
	return response.OK(c, map[string]any{"errors": h.Engine.Sink().AllErrors()}, "")
}

// ClearErrors empties the engine error collector (DELETE /errors).
func (h *LogHandler) ClearErrors(c echo.Context) error {
	h.Engine.Sink().Clear()
	return response.OK(c, nil, "cleared")
}
