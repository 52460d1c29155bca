package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"batch-dispatch-service/internal/logging"
	"batch-dispatch-service/internal/models"
)

// ErrAlertNotFound is returned for operations on an unknown alert id.
var ErrAlertNotFound = errors.New("alert not found")

// DefaultRetention is how long an acknowledged alert is kept.
const DefaultRetention = 24 * time.Hour

// Store persists the serialized active alert set.
// Load returns nil data when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// RuleSource supplies the current threshold rules.
type RuleSource interface {
	AlertRules(ctx context.Context) ([]models.AlertRule, error)
}

// NotifyFunc is invoked once for every newly detected alert.
type NotifyFunc func(alert models.AlertEvent)

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRetention sets how long acknowledged alerts survive.
func WithRetention(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.retention = d
		}
	}
}

// WithNotifier registers the callback for new alerts.
func WithNotifier(fn NotifyFunc) Option {
	return func(m *Manager) { m.notify = fn }
}

// WithRuleSource reloads the rules from src on the given cron schedule once
// the manager is started.
func WithRuleSource(src RuleSource, schedule string) Option {
	return func(m *Manager) {
		m.ruleSource = src
		m.ruleSchedule = schedule
	}
}

// Manager owns the active alert set. Unacknowledged alerts are never aged
// out; they stay until dismissed.
type Manager struct {
	mu        sync.Mutex
	active    []models.AlertEvent
	rules     []models.AlertRule
	store     Store
	notify    NotifyFunc
	retention time.Duration
	now       func() time.Time
	logger    *logging.Logger
	cron      *cron.Cron

	ruleSource   RuleSource
	ruleSchedule string
	// loaded is false while the persisted set could not be read; saving is
	// held back so the stored alerts are not overwritten.
	loaded bool
}

// NewManager rehydrates the active set from store. A corrupt blob is
// discarded and the manager starts empty.
func NewManager(ctx context.Context, store Store, rules []models.AlertRule, logger *logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		rules:     append([]models.AlertRule(nil), rules...),
		store:     store,
		retention: DefaultRetention,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}

	data, err := store.Load(ctx)
	if err != nil {
		m.logger.Errorf("Failed to load persisted alerts, saving paused until they can be read: %v", err)
		return m
	}
	m.loaded = true
	active, err := decodeAlerts(data)
	if err != nil {
		m.logger.Warnf("Discarding unreadable persisted alerts: %v", err)
		return m
	}
	m.active = active
	m.logger.Infof("Restored %d active alerts", len(active))
	return m
}

// SetRules replaces the rule set used by later snapshots.
func (m *Manager) SetRules(rules []models.AlertRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append([]models.AlertRule(nil), rules...)
}

// Rules returns a copy of the current rule set.
func (m *Manager) Rules() []models.AlertRule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AlertRule(nil), m.rules...)
}

// ReloadRules replaces the rules with the ones from the rule source. On error
// or an empty result the current rules stay in place.
func (m *Manager) ReloadRules(ctx context.Context) error {
	if m.ruleSource == nil {
		return nil
	}
	rules, err := m.ruleSource.AlertRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload alert rules: %w", err)
	}
	if len(rules) == 0 {
		m.logger.Warnf("Rule source returned no rules, keeping %d current rules", len(m.Rules()))
		return nil
	}
	m.SetRules(rules)
	m.logger.Debugf("Reloaded %d alert rules", len(rules))
	return nil
}

// OnSnapshot evaluates the rules and records every event whose metric has no
// active unacknowledged alert yet. The notifier runs once per recorded alert.
func (m *Manager) OnSnapshot(ctx context.Context, snapshot models.AnalyticsSnapshot) []models.AlertEvent {
	m.mu.Lock()
	events := Evaluate(snapshot, m.rules, m.stamp())

	var fresh []models.AlertEvent
	for _, ev := range events {
		if m.hasOpenAlert(ev.Metric) {
			m.logger.Debugf("Alert on %s already open, skipping", ev.Metric)
			continue
		}
		m.active = append(m.active, ev)
		fresh = append(fresh, ev)
	}
	if swept := m.sweepLocked(); swept > 0 || len(fresh) > 0 {
		m.persistLocked(ctx)
	}
	notify := m.notify
	m.mu.Unlock()

	for _, ev := range fresh {
		m.logger.Warnf("New %s alert on %s: value %.2f, threshold %.2f", ev.Severity, ev.Metric, ev.Value, ev.Threshold)
		if notify != nil {
			notify(ev)
		}
	}
	return fresh
}

// Acknowledge marks an alert as seen. Acknowledging twice is a no-op.
func (m *Manager) Acknowledge(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	if !m.active[idx].Acknowledged {
		at := m.stamp()
		m.active[idx].Acknowledged = true
		m.active[idx].AcknowledgedAt = &at
	}
	m.sweepLocked()
	m.persistLocked(ctx)
	return nil
}

// Dismiss removes an alert regardless of its state.
func (m *Manager) Dismiss(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	m.active = append(m.active[:idx], m.active[idx+1:]...)
	m.sweepLocked()
	m.persistLocked(ctx)
	return nil
}

// Active returns the active alerts, newest first.
func (m *Manager) Active() []models.AlertEvent {
	m.mu.Lock()
	out := append([]models.AlertEvent(nil), m.active...)
	m.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Sweep removes acknowledged alerts older than the retention window and
// returns how many were dropped.
func (m *Manager) Sweep(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.sweepLocked()
	if n > 0 {
		m.persistLocked(ctx)
		m.logger.Infof("Swept %d acknowledged alerts", n)
	}
	return n
}

// Start schedules the periodic sweep with a cron spec such as "@every 1h".
func (m *Manager) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { m.Sweep(context.Background()) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	if m.ruleSource != nil {
		_, err := c.AddFunc(m.ruleSchedule, func() {
			if err := m.ReloadRules(context.Background()); err != nil {
				m.logger.Errorf("%v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid rule reload schedule %q: %w", m.ruleSchedule, err)
		}
	}
	m.mu.Lock()
	m.cron = c
	m.mu.Unlock()
	c.Start()
	return nil
}

// Stop halts the periodic sweep and waits for a running one to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (m *Manager) stamp() time.Time {
	return m.now().UTC().Round(0)
}

func (m *Manager) hasOpenAlert(metric models.Metric) bool {
	for _, a := range m.active {
		if a.Metric == metric && !a.Acknowledged {
			return true
		}
	}
	return false
}

func (m *Manager) indexOf(id string) int {
	for i, a := range m.active {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) sweepLocked() int {
	cutoff := m.now().Add(-m.retention)
	kept := m.active[:0]
	removed := 0
	for _, a := range m.active {
		ackedAt := a.Timestamp
		if a.AcknowledgedAt != nil {
			ackedAt = *a.AcknowledgedAt
		}
		if a.Acknowledged && ackedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	m.active = kept
	return removed
}

func (m *Manager) persistLocked(ctx context.Context) {
	if !m.loaded && !m.reloadLocked(ctx) {
		m.logger.Warnf("Stored alerts still unreadable, skipping save of %d alerts", len(m.active))
		return
	}
	data, err := encodeAlerts(m.active)
	if err != nil {
		m.logger.Errorf("Failed to encode alerts: %v", err)
		return
	}
	if err := m.store.Save(ctx, data); err != nil {
		m.logger.Errorf("Failed to persist alerts: %v", err)
	}
}

// reloadLocked retries the initial load and merges stored alerts the
// manager does not know yet. It reports whether the store was readable.
func (m *Manager) reloadLocked(ctx context.Context) bool {
	data, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Errorf("Failed to load persisted alerts: %v", err)
		return false
	}
	m.loaded = true
	stored, err := decodeAlerts(data)
	if err != nil {
		m.logger.Warnf("Discarding unreadable persisted alerts: %v", err)
		return true
	}
	for _, a := range stored {
		if m.indexOf(a.ID) < 0 {
			m.active = append(m.active, a)
		}
	}
	m.logger.Infof("Merged %d persisted alerts after delayed load", len(stored))
	return true
}

func encodeAlerts(active []models.AlertEvent) ([]byte, error) {
	if active == nil {
		active = []models.AlertEvent{}
	}
	return json.Marshal(active)
}

func decodeAlerts(data []byte) ([]models.AlertEvent, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var list []models.AlertEvent
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	out := list[:0]
	for _, a := range list {
		if a.ID == "" || !a.Metric.IsValid() {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
