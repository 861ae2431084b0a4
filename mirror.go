package segsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// MirrorEvent is the JSON payload the mirror publishes for every lifecycle
// event.
type MirrorEvent struct {
	Identity    string    `json:"identity"`
	Email       string    `json:"email,omitempty"`
	Direction   Direction `json:"direction"`
	SegmentID   string    `json:"segment_id"`
	SegmentName string    `json:"segment_name"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventMirrorConfig configures an EventMirror.
type EventMirrorConfig struct {
	// SubjectPrefix is the leading token of published subjects.
	SubjectPrefix string
	SegmentID     string
	SegmentName   string
	Logger        *slog.Logger
}

// EventMirror republishes lifecycle events to NATS so downstream consumers
// can react to membership changes without polling the vendor API. Subjects
// follow <prefix>.<segment-id>.events.<joined|left>.
type EventMirror struct {
	nc     *nats.Conn
	cfg    EventMirrorConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewEventMirror creates a mirror publishing on the given connection.
func NewEventMirror(nc *nats.Conn, cfg EventMirrorConfig) *EventMirror {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "mirror")
	}
	return &EventMirror{
		nc:     nc,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Emit publishes the lifecycle event. Mirroring is best-effort: the caller
// logs the returned error and moves on.
func (m *EventMirror) Emit(ctx context.Context, identity, email string, joining bool) error {
	dir := directionFor(joining)

	data, err := json.Marshal(MirrorEvent{
		Identity:    identity,
		Email:       email,
		Direction:   dir,
		SegmentID:   m.cfg.SegmentID,
		SegmentName: m.cfg.SegmentName,
		Timestamp:   m.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal mirror event: %w", err)
	}

	msg := &nats.Msg{
		Subject: fmt.Sprintf("%s.%s.events.%s", m.cfg.SubjectPrefix, m.cfg.SegmentID, dir),
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set("X-Segment", m.cfg.SegmentID)

	if err := m.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish mirror event: %w", err)
	}
	return nil
}
