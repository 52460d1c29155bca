package batch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"batch-dispatch-service/internal/logging"
	"batch-dispatch-service/internal/models"
	"batch-dispatch-service/internal/phone"
)

// ErrInvalidBatch is returned synchronously for malformed dispatch input.
var ErrInvalidBatch = errors.New("invalid batch")

// Sender performs the outbound provider call for a single message and
// returns the provider-assigned message id, which may be empty.
type Sender interface {
	Send(ctx context.Context, auth models.AuthContext, msg models.OutboundMessage) (string, error)
}

// Options tunes a Dispatcher. Zero values fall back to the defaults.
type Options struct {
	Delay       time.Duration
	SendTimeout time.Duration
	Retention   time.Duration
}

const (
	DefaultDelay       = time.Second
	DefaultSendTimeout = 10 * time.Second
	DefaultRetention   = 24 * time.Hour
)

// Dispatcher sends batches one message at a time and reports progress
// through the Store.
type Dispatcher struct {
	ctx    context.Context
	store  *Store
	sender Sender
	logger *logging.Logger
	opts   Options
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher. In-flight batches stop at their next
// suspension point once ctx is cancelled.
func NewDispatcher(ctx context.Context, store *Store, sender Sender, logger *logging.Logger, opts Options) *Dispatcher {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	return &Dispatcher{
		ctx:    ctx,
		store:  store,
		sender: sender,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

// Dispatch validates the input, publishes a Processing record and starts
// sending in the background. Progress is observable only through the Store.
func (d *Dispatcher) Dispatch(batchID string, messages []models.OutboundMessage, auth models.AuthContext) error {
	if strings.TrimSpace(batchID) == "" {
		return fmt.Errorf("%w: batch id is required", ErrInvalidBatch)
	}
	for i, msg := range messages {
		if strings.TrimSpace(msg.Recipient) == "" {
			return fmt.Errorf("%w: message %d has no recipient", ErrInvalidBatch, i)
		}
	}

	// copy so later mutations by the caller cannot reorder the batch
	queue := append([]models.OutboundMessage(nil), messages...)
	rec := models.BatchStatusRecord{
		BatchID: batchID,
		Total:   len(queue),
		Status:  models.BatchProcessing,
		Details: make([]models.DeliveryOutcome, 0, len(queue)),
	}
	if err := d.store.Begin(rec); err != nil {
		return fmt.Errorf("batch %s: %w", batchID, err)
	}

	d.logger.Infof("Dispatching batch %s with %d messages", batchID, len(queue))
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(rec, queue, auth)
	}()
	return nil
}

// Wait blocks until every started batch has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(rec models.BatchStatusRecord, messages []models.OutboundMessage, auth models.AuthContext) {
	log := d.logger.WithField("batch_id", rec.BatchID)

	for i, msg := range messages {
		if !d.pause() {
			log.Warnf("Batch stopped by shutdown after %d/%d messages", rec.Completed, rec.Total)
			return
		}

		msg.Recipient = phone.Normalize(msg.Recipient)
		outcome := d.sendOne(auth, msg)
		if outcome.Outcome == models.OutcomeSuccess {
			rec.Successful++
		} else {
			rec.Failed++
			log.Errorf("Message %d to %s failed: %s", i+1, msg.Recipient, outcome.ErrorMessage)
		}
		rec.Details = append(rec.Details, outcome)
		rec.Completed++
		d.store.Publish(rec)
	}

	completedAt := d.now()
	rec.Status = models.BatchCompleted
	rec.CompletedAt = &completedAt
	d.store.Complete(rec, d.opts.Retention)

	log.Infof("Batch completed: %d successful, %d failed", rec.Successful, rec.Failed)
}

func (d *Dispatcher) sendOne(auth models.AuthContext, msg models.OutboundMessage) models.DeliveryOutcome {
	ctx, cancel := context.WithTimeout(d.ctx, d.opts.SendTimeout)
	defer cancel()

	id, err := d.sender.Send(ctx, auth, msg)
	now := d.now()
	if err != nil {
		return models.DeliveryOutcome{
			Recipient:    msg.Recipient,
			Outcome:      models.OutcomeFailure,
			ErrorMessage: err.Error(),
			Timestamp:    now,
		}
	}
	if id == "" {
		id = strconv.FormatInt(now.UnixMilli(), 10)
	}
	return models.DeliveryOutcome{
		Recipient: msg.Recipient,
		Outcome:   models.OutcomeSuccess,
		MessageID: id,
		Timestamp: now,
	}
}

// pause waits out the inter-message delay. It reports false on shutdown.
func (d *Dispatcher) pause() bool {
	timer := time.NewTimer(d.opts.Delay)
	defer timer.Stop()
	select {
	case <-d.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
