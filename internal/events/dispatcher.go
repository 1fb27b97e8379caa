package events

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StoredEvent is one outbox row handed to a Handler.
type StoredEvent struct {
	ID        int64
	OrgID     int64
	EventType string
	Payload   datatypes.JSONMap
	CreatedAt time.Time
}

// Handler consumes drained outbox events. A handler error leaves the row
// unpublished so the next pass retries it.
type Handler interface {
	HandleEvent(ctx context.Context, event StoredEvent) error
}

// LogHandler is the development consumer: it only logs the event.
type LogHandler struct {
	log *zap.Logger
}

func NewLogHandler(log *zap.Logger) *LogHandler {
	return &LogHandler{log: log.Named("events.handler")}
}

func (h *LogHandler) HandleEvent(_ context.Context, event StoredEvent) error {
	h.log.Info("donation event dispatched",
		zap.Int64("event_id", event.ID),
		zap.String("event_type", event.EventType),
	)
	return nil
}

// DispatcherConfig controls the outbox drain loop.
type DispatcherConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	return c
}

// Dispatcher drains unpublished outbox rows in id order and marks them
// published once the handler accepts them. Concurrent dispatchers are safe:
// each claims its batch with row locks on Postgres and the published flag
// flips inside the claim transaction.
type Dispatcher struct {
	db      *gorm.DB
	log     *zap.Logger
	handler Handler
	cfg     DispatcherConfig
}

func NewDispatcher(db *gorm.DB, log *zap.Logger, handler Handler, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		db:      db,
		log:     log.Named("events.dispatcher"),
		handler: handler,
		cfg:     cfg.withDefaults(),
	}
}

func (d *Dispatcher) RunForever(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := d.RunOnce(ctx); err != nil {
			d.log.Warn("outbox drain failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce drains one batch and reports how many events were dispatched.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	if d.db == nil || d.handler == nil {
		return 0, errors.New("dispatcher_unavailable")
	}

	dispatched := 0
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := `SELECT id, org_id, event_type, payload, created_at
			 FROM donation_events
			 WHERE published = false
			 ORDER BY id
			 LIMIT ?`
		if tx.Dialector.Name() == "postgres" {
			query += ` FOR UPDATE SKIP LOCKED`
		}

		var rows []StoredEvent
		if err := tx.WithContext(ctx).Raw(query, d.cfg.BatchSize).Scan(&rows).Error; err != nil {
			return err
		}

		for _, row := range rows {
			if err := d.handler.HandleEvent(ctx, row); err != nil {
				d.log.Warn("event handler failed",
					zap.Int64("event_id", row.ID),
					zap.String("event_type", row.EventType),
					zap.Error(err),
				)
				continue
			}
			if err := tx.WithContext(ctx).Exec(
				`UPDATE donation_events SET published = true WHERE id = ?`,
				row.ID,
			).Error; err != nil {
				return err
			}
			dispatched++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return dispatched, nil
}
