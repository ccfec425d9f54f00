package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"
)

const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
	StatusMissing     = "missing"
	StatusUnreadable  = "unreadable"
)

// DBPinger is the part of the employee store the preflight needs.
// CountEmployees fails when the employees table has not been migrated.
type DBPinger interface {
	Ping(ctx context.Context) error
	CountEmployees(ctx context.Context) (int, error)
}

// Checker verifies that an import could run: the input file is readable and the employees table answers.
type Checker struct {
	db        DBPinger
	inputPath string
	timeout   time.Duration
	log       *slog.Logger
}

// NewChecker builds a Checker. db may be nil when the store could not be opened.
func NewChecker(db DBPinger, inputPath string, log *slog.Logger) *Checker {
	pingTO := 5
	return &Checker{
		db:        db,
		inputPath: inputPath,
		timeout:   time.Duration(pingTO) * time.Second,
		log:       log,
	}
}

// Check runs every probe and reports whether all of them passed.
func (h *Checker) Check(ctx context.Context) (map[string]string, bool) {
	h.log.DebugContext(ctx, "Performing health checks...")

	status := make(map[string]string)
	healthy := true

	if err := h.pingDB(ctx); err != nil {
		status["database"] = StatusUnavailable
		healthy = false
		h.log.WarnContext(ctx, "Health check failed: DB ping", "error", err)
	} else {
		status["database"] = StatusOK
	}

	file, err := os.Open(h.inputPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		status["input"] = StatusMissing
		healthy = false
		h.log.WarnContext(ctx, "Health check failed: input file not found", "path", h.inputPath)
	case err != nil:
		status["input"] = StatusUnreadable
		healthy = false
		h.log.WarnContext(ctx, "Health check failed: input file unreadable", "path", h.inputPath, "error", err)
	default:
		status["input"] = StatusOK
		if err = file.Close(); err != nil {
			h.log.WarnContext(ctx, "Failed to close input file", "error", err)
		}
	}

	h.log.DebugContext(ctx, "Health checks completed", "healthy", healthy)

	return status, healthy
}

// WriteJSON runs Check and encodes the status map to w.
func (h *Checker) WriteJSON(ctx context.Context, w io.Writer) (bool, error) {
	status, healthy := h.Check(ctx)

	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.log.ErrorContext(ctx, "Failed to write health check response", "error", err)
		return healthy, err
	}

	return healthy, nil
}

func (h *Checker) pingDB(ctx context.Context) error {
	if h.db == nil {
		return errors.New("store is not connected")
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return err
	}

	_, err := h.db.CountEmployees(ctx)

	return err
}
