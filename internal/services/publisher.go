package services

import (
	"context"
	"time"

	"billtracker/internal/amqp"
	"billtracker/internal/ledger"
	"billtracker/internal/log"
)

// Publisher sends ledger change events to the message broker.
type Publisher interface {
	PublishLedgerChange(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

type PublishRecorder interface {
	ObservePublish(ok bool)
}

// ChangePublisher is a ledger.Observer forwarding each persisted change to
// a Publisher. Publish failures are logged and counted; the ledger change
// itself already succeeded.
type ChangePublisher struct {
	publisher Publisher
	recorder  PublishRecorder
	logger    *log.Logger
	now       func() time.Time
}

func NewChangePublisher(p Publisher, recorder PublishRecorder, logger *log.Logger) *ChangePublisher {
	if logger == nil {
		logger = log.Discard()
	}
	return &ChangePublisher{
		publisher: p,
		recorder:  recorder,
		logger:    logger.WithComponent(log.ComponentAMQP),
		now:       time.Now,
	}
}

func (c *ChangePublisher) LedgerChanged(ctx context.Context, change ledger.Change) {
	if c.publisher == nil {
		c.logger.DebugContext(ctx, "AMQP publisher not available, skipping change event",
			log.FieldOperation, change.Op)
		return
	}

	msg := amqp.NewLedgerChangedMessage(change, c.now())
	// The request may finish before the broker answers.
	err := c.publisher.PublishLedgerChange(context.WithoutCancel(ctx), msg)
	if c.recorder != nil {
		c.recorder.ObservePublish(err == nil)
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to publish ledger change",
			log.FieldOperation, change.Op,
			log.FieldMessageID, msg.ID,
			log.FieldError, err)
		return
	}
	c.logger.DebugContext(ctx, "Published ledger change",
		log.FieldOperation, change.Op,
		log.FieldMessageID, msg.ID)
}
