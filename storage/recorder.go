package storage

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// EventStore is the part of SqliteStorage a Recorder writes to.
type EventStore interface {
	AppendEvent(ctx context.Context, id string, seq int, raw []byte) error
}

// Recorder appends raw provider events to one recording. Its Record method
// fits llm.Config.OnEvent.
type Recorder struct {
	ctx    context.Context
	store  EventStore
	id     string
	logger *slog.Logger

	mu  sync.Mutex
	seq int
	err error
}

// NewRecorder returns a Recorder writing to recording id.
func NewRecorder(ctx context.Context, store EventStore, id string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{ctx: ctx, store: store, id: id, logger: logger}
}

// ID returns the recording ID.
func (r *Recorder) ID() string {
	return r.id
}

// Record stores raw as the next event. After the first failure further
// events are dropped; the failure is reported by Err.
func (r *Recorder) Record(raw []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	data := make([]byte, len(raw))
	copy(data, raw)
	if err := r.store.AppendEvent(r.ctx, r.id, r.seq, data); err != nil {
		r.logger.Warn("recording stopped", "recording", r.id, "seq", r.seq, "error", err)
		r.err = err
		return
	}
	r.seq++
}

// Count returns the number of events stored.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Err returns the first storage failure, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
