// Package queue holds accepted commands for delivery to the actuator agent.
//
// The queue is the only shared mutable state between the request-serving
// side and the agent. A single mutex serializes every mutation and snapshot,
// so an entry can never be observed both pending and processed. Entries are
// kept in memory only; durability across restarts is out of scope.
package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-rover/pkg/action"
	"github.com/teslashibe/go-rover/pkg/pipeline"
)

// Status is the lifecycle state of an entry.
type Status string

const (
	// StatusPending means the entry has not been acknowledged yet.
	StatusPending Status = "pending"
	// StatusProcessed means the agent executed and acknowledged the entry.
	StatusProcessed Status = "processed"
	// StatusFailed means the agent gave up after repeated execution failures.
	StatusFailed Status = "failed"
)

// Entry is one accepted command awaiting (or past) delivery.
type Entry struct {
	ID             uuid.UUID   `json:"id"`
	Action         action.Code `json:"action_number"`
	SpokenResponse string      `json:"voice_response"`
	Kind           action.Kind `json:"command_type"`
	Transcription  string      `json:"transcription"`
	Status         Status      `json:"status"`
	FailureReason  string      `json:"failure_reason,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
}

// ErrRejected is returned when enqueueing a failed pipeline result.
var ErrRejected = errors.New("queue: failed results are not enqueued")

// DefaultHistoryCap bounds retained history before trimming kicks in.
const DefaultHistoryCap = 1000

// Queue is a thread-safe in-memory command store.
type Queue struct {
	mu         sync.Mutex
	entries    []*Entry // creation order, live set and history in one
	byID       map[uuid.UUID]*Entry
	historyCap int
	created    uint64 // total entries ever created, monotonic
}

// New creates a Queue with the default history cap.
func New() *Queue {
	return NewWithCap(DefaultHistoryCap)
}

// NewWithCap creates a Queue retaining at most historyCap settled entries.
func NewWithCap(historyCap int) *Queue {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	return &Queue{
		byID:       make(map[uuid.UUID]*Entry),
		historyCap: historyCap,
	}
}

// Enqueue stores a successful pipeline result as a pending entry and returns
// it. Failed results are rejected without creating an entry.
func (q *Queue) Enqueue(res pipeline.CommandResult, source string) (Entry, error) {
	if !res.Succeeded {
		return Entry{}, ErrRejected
	}

	transcription := source
	if res.Transcription != nil {
		transcription = *res.Transcription
	}

	e := &Entry{
		ID:             uuid.New(),
		Action:         res.Action,
		SpokenResponse: res.SpokenResponse,
		Kind:           res.Kind,
		Transcription:  transcription,
		Status:         StatusPending,
		CreatedAt:      time.Now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, e)
	q.byID[e.ID] = e
	q.created++
	q.trimLocked()
	return *e, nil
}

// ListPending returns a snapshot of pending entries, oldest first.
func (q *Queue) ListPending() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Entry
	for _, e := range q.entries {
		if e.Status == StatusPending {
			out = append(out, *e)
		}
	}
	return out
}

// MarkProcessed transitions an entry to Processed. Returns false for unknown
// ids and for entries already settled; the first successful call wins.
func (q *Queue) MarkProcessed(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.byID[id]
	if !ok || e.Status != StatusPending {
		return false
	}
	now := time.Now()
	e.Status = StatusProcessed
	e.CompletedAt = &now
	return true
}

// MarkFailed transitions a pending entry to the terminal Failed state.
// Returns false for unknown ids and entries already settled.
func (q *Queue) MarkFailed(id uuid.UUID, reason string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.byID[id]
	if !ok || e.Status != StatusPending {
		return false
	}
	now := time.Now()
	e.Status = StatusFailed
	e.FailureReason = reason
	e.CompletedAt = &now
	return true
}

// History returns up to limit most recent entries of any status, newest
// first. limit <= 0 returns everything retained.
func (q *Queue) History(limit int) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, *q.entries[i])
	}
	return out
}

// Stats reports queue counters for the status endpoint.
type Stats struct {
	Pending uint64 `json:"pending_commands"`
	Total   uint64 `json:"total_commands"`
}

// Stats returns current counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	var pending uint64
	for _, e := range q.entries {
		if e.Status == StatusPending {
			pending++
		}
	}
	return Stats{Pending: pending, Total: q.created}
}

// trimLocked drops the oldest settled entries beyond the history cap.
// Pending entries are never trimmed, so a slow agent cannot silently lose
// commands to retention.
func (q *Queue) trimLocked() {
	excess := len(q.entries) - q.historyCap
	if excess <= 0 {
		return
	}
	kept := q.entries[:0]
	for _, e := range q.entries {
		if excess > 0 && e.Status != StatusPending {
			delete(q.byID, e.ID)
			excess--
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
}
