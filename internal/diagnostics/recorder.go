// Package diagnostics persists a record of IPC traffic — one row per
// dispatched frame — to a local sqlite database, for after-the-fact replay
// and debugging of a bridge session. It is entirely optional: a Bridge
// with no DiagnosticsDBPath configured never touches this package.
package diagnostics

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// FrameRecord is one logged frame: either a native->JS Evaluate this
// process sent, or a JS->native Evaluate/Respond it received.
type FrameRecord struct {
	ID          uint      `gorm:"primarykey"`
	TraceID     string    `gorm:"index"`
	Direction   string    // "outbound" or "inbound"
	MessageType string    // "Evaluate" or "Respond"
	ByteSize    int
	RecordedAt  time.Time `gorm:"index"`
}

// Recorder owns the sqlite connection diagnostics data is written to.
type Recorder struct {
	db *gorm.DB
}

// Open creates (if needed) and migrates the sqlite database at path, and
// returns a Recorder writing to it.
func Open(path string) (*Recorder, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&FrameRecord{}); err != nil {
		return nil, err
	}
	return &Recorder{db: db}, nil
}

// NewTrace returns a fresh correlation id. Wrap takes one per
// RecordingTransport, so every frame through that transport (including
// nested re-entrant calls) is grouped under the same id during replay.
func (r *Recorder) NewTrace() string {
	return uuid.NewString()
}

// RecordFrame logs one frame. Errors are intentionally not surfaced to the
// caller beyond the return value — a diagnostics write failure must never
// fail the call it is merely observing.
func (r *Recorder) RecordFrame(traceID, direction, messageType string, size int) error {
	return r.db.Create(&FrameRecord{
		TraceID:     traceID,
		Direction:   direction,
		MessageType: messageType,
		ByteSize:    size,
		RecordedAt:  time.Now(),
	}).Error
}

// SizeSummary returns a human-readable total of bytes recorded so far,
// e.g. "14 MB", for inclusion in a shutdown log line.
func (r *Recorder) SizeSummary() (string, error) {
	var total int64
	if err := r.db.Model(&FrameRecord{}).Select("COALESCE(SUM(byte_size), 0)").Scan(&total).Error; err != nil {
		return "", err
	}
	return humanize.Bytes(uint64(total)), nil
}

// Close releases the underlying sqlite connection.
func (r *Recorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// transport is the core.Transport interface, restated here to avoid this
// package importing internal/core just for one method set.
type transport interface {
	SendToJS(frame []byte) ([]byte, error)
	SetMessageHandler(handler func([]byte))
	Send(frame []byte) error
}

// RecordingTransport wraps another transport, logging the size and
// direction of every frame that passes through it under one trace id.
type RecordingTransport struct {
	inner transport
	rec   *Recorder
	trace string
}

// Wrap returns a transport that records every frame it carries through
// rec before delegating to inner.
func Wrap(inner transport, rec *Recorder) *RecordingTransport {
	return &RecordingTransport{inner: inner, rec: rec, trace: rec.NewTrace()}
}

func (t *RecordingTransport) SendToJS(frame []byte) ([]byte, error) {
	_ = t.rec.RecordFrame(t.trace, "outbound", "Evaluate", len(frame))
	reply, err := t.inner.SendToJS(frame)
	if err == nil && reply != nil {
		_ = t.rec.RecordFrame(t.trace, "inbound", "Respond", len(reply))
	}
	return reply, err
}

func (t *RecordingTransport) Send(frame []byte) error {
	_ = t.rec.RecordFrame(t.trace, "outbound", "Evaluate", len(frame))
	return t.inner.Send(frame)
}

func (t *RecordingTransport) SetMessageHandler(handler func([]byte)) {
	t.inner.SetMessageHandler(func(frame []byte) {
		_ = t.rec.RecordFrame(t.trace, "inbound", "Evaluate", len(frame))
		handler(frame)
	})
}
