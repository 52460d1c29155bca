package batch

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"batch-dispatch-service/internal/logging"
	"batch-dispatch-service/internal/models"
)

var (
	// ErrNotFound means the batch is unknown: never started or already cleaned up.
	ErrNotFound = errors.New("batch not found")
	// ErrBatchInProgress is returned when a batch id is reused while still processing.
	ErrBatchInProgress = errors.New("batch already in progress")
)

type entry struct {
	record    models.BatchStatusRecord
	expiresAt time.Time
}

// Store holds batch progress records in memory, keyed by batch id.
// Records scheduled for expiry are removed by Sweep and hidden from Get
// as soon as their deadline passes.
type Store struct {
	mu      sync.RWMutex
	records map[string]*entry
	expiry  expiryQueue
	now     func() time.Time
	logger  *logging.Logger
}

// NewStore constructs an empty Store.
func NewStore(logger *logging.Logger) *Store {
	return &Store{
		records: make(map[string]*entry),
		now:     time.Now,
		logger:  logger,
	}
}

// SetClock replaces the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Begin publishes the initial record of a new batch. It refuses to replace
// a record that is still processing.
func (s *Store) Begin(rec models.BatchStatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.live(rec.BatchID); ok && e.record.Status == models.BatchProcessing {
		return ErrBatchInProgress
	}
	s.records[rec.BatchID] = &entry{record: rec.Clone()}
	return nil
}

// Publish stores rec under its batch id. Last publish wins.
func (s *Store) Publish(rec models.BatchStatusRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[rec.BatchID]
	if !ok {
		s.records[rec.BatchID] = &entry{record: rec.Clone()}
		return
	}
	e.record = rec.Clone()
}

// Get returns a snapshot of the record or ErrNotFound.
func (s *Store) Get(batchID string) (models.BatchStatusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.live(batchID)
	if !ok {
		return models.BatchStatusRecord{}, ErrNotFound
	}
	return e.record.Clone(), nil
}

// Expire removes the record immediately.
func (s *Store) Expire(batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, batchID)
}

// ExpireAfter schedules removal of a completed record once d has elapsed.
// Records that are not completed are left alone. Reads never extend the deadline.
func (s *Store) ExpireAfter(batchID string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireAfterLocked(batchID, d)
}

// Complete publishes the final record and schedules its removal in one step,
// so a batch restarted under the same id never inherits the old deadline.
func (s *Store) Complete(rec models.BatchStatusRecord, retention time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.BatchID] = &entry{record: rec.Clone()}
	s.expireAfterLocked(rec.BatchID, retention)
}

func (s *Store) expireAfterLocked(batchID string, d time.Duration) {
	e, ok := s.records[batchID]
	if !ok || e.record.Status != models.BatchCompleted {
		return
	}
	e.expiresAt = s.now().Add(d)
	heap.Push(&s.expiry, expiryItem{batchID: batchID, at: e.expiresAt})
}

// Sweep drops every record whose deadline has passed and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for s.expiry.Len() > 0 && !s.expiry[0].at.After(now) {
		item := heap.Pop(&s.expiry).(expiryItem)
		e, ok := s.records[item.batchID]
		// a republished batch carries a newer deadline; skip the stale heap item
		if !ok || !e.expiresAt.Equal(item.at) {
			continue
		}
		delete(s.records, item.batchID)
		removed++
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debugf("Expired %d batch status records", n)
			}
		}
	}
}

// live must be called with s.mu held.
func (s *Store) live(batchID string) (*entry, bool) {
	e, ok := s.records[batchID]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		return nil, false
	}
	return e, true
}

type expiryItem struct {
	batchID string
	at      time.Time
}

// expiryQueue is a min-heap ordered by deadline.
type expiryQueue []expiryItem

func (q expiryQueue) Len() int           { return len(q) }
func (q expiryQueue) Less(i, j int) bool { return q[i].at.Before(q[j].at) }
func (q expiryQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *expiryQueue) Push(x any) {
	*q = append(*q, x.(expiryItem))
}

func (q *expiryQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
