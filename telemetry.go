package main

import (
	"database/sql"
	"log"
	"sync"
	"time"
)

// Event kinds tracked for this domain (spec §5's "implementers MAY
// off-load writes to a separate task" note). Trimmed from the teacher's
// analytics.go vocabulary (kills/achievements/daily-login) to the match
// lifecycle and economy events that exist here.
const (
	EvtMatchStart       = "match_start"
	EvtMatchEnd         = "match_end"
	EvtPowerupPurchase  = "powerup_purchase"
	EvtCoinCollected    = "coin_collected"
)

// TelemetryEvent is a single trackable event.
type TelemetryEvent struct {
	Type      string
	MatchID   string
	UserID    string
	Detail    string
	Timestamp time.Time
}

// Telemetry batches events off the simulation hot path, grounded on the
// teacher's analytics.go (chan + background writer() goroutine +
// WaitGroup-drained Close).
type Telemetry struct {
	db     *Repository
	events chan TelemetryEvent
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewTelemetry creates and starts the telemetry background writer.
func NewTelemetry(db *Repository) *Telemetry {
	t := &Telemetry{
		db:     db,
		events: make(chan TelemetryEvent, 1024),
		stop:   make(chan struct{}),
	}
	t.wg.Add(1)
	go t.writer()
	return t
}

// Track enqueues an event for async persistence, dropping it if the queue
// is full rather than blocking the calling match actor.
func (t *Telemetry) Track(evtType, matchID, userID, detail string) {
	select {
	case t.events <- TelemetryEvent{Type: evtType, MatchID: matchID, UserID: userID, Detail: detail, Timestamp: time.Now().UTC()}:
	default:
	}
}

// Stop gracefully drains and shuts down the writer.
func (t *Telemetry) Stop() {
	close(t.stop)
	t.wg.Wait()
}

func (t *Telemetry) writer() {
	defer t.wg.Done()

	batch := make([]TelemetryEvent, 0, 64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt := <-t.events:
			batch = append(batch, evt)
			if len(batch) >= 50 {
				t.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = batch[:0]
			}
		case <-t.stop:
			close(t.events)
			for evt := range t.events {
				batch = append(batch, evt)
			}
			if len(batch) > 0 {
				t.flush(batch)
			}
			return
		}
	}
}

func (t *Telemetry) flush(events []TelemetryEvent) {
	if t.db == nil || len(events) == 0 {
		return
	}
	tx, err := t.db.conn.Begin()
	if err != nil {
		log.Printf("telemetry: begin tx error: %v", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO telemetry_events (event_type, match_id, user_id, detail, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("telemetry: prepare error: %v", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		matchID := sql.NullString{String: evt.MatchID, Valid: evt.MatchID != ""}
		userID := sql.NullString{String: evt.UserID, Valid: evt.UserID != ""}
		detail := sql.NullString{String: evt.Detail, Valid: evt.Detail != ""}
		if _, err := stmt.Exec(evt.Type, matchID, userID, detail, evt.Timestamp.Format(time.RFC3339)); err != nil {
			log.Printf("telemetry: insert error: %v", err)
		}
	}
	tx.Commit()
}
