package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xoslabs/workforce/internal/domain"
	"github.com/xoslabs/workforce/internal/store"
	"go.uber.org/zap"
)

const (
	listenerReconnectDelay = 5 * time.Second
	eventLoadTimeout       = 5 * time.Second
)

type eventLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error)
}

// Listener holds a dedicated connection on LISTEN and fans each
// notification out to in-process subscribers.
type Listener struct {
	db      *pgxpool.Pool
	channel string
	logger  *zap.Logger
	hub     *Hub
	events  eventLoader

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewListener(db *pgxpool.Pool, channel string, logger *zap.Logger) *Listener {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Listener{
		db:      db,
		channel: channel,
		logger:  logger,
		hub:     NewHub(),
		events:  store.NewEventStore(db),
	}
}

// Subscribe registers fn for every event received on the channel.
func (l *Listener) Subscribe(fn func(domain.Event)) {
	l.hub.Subscribe(fn)
}

// Start listens in a background goroutine, reconnecting after failures.
func (l *Listener) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.logger.Info("event listener started", zap.String("channel", l.channel))
		for {
			err := l.listen(ctx)
			if ctx.Err() != nil {
				l.logger.Info("event listener stopped")
				return
			}
			l.logger.Warn("event listener disconnected", zap.Error(err))
			select {
			case <-time.After(listenerReconnectDelay):
			case <-ctx.Done():
				l.logger.Info("event listener stopped")
				return
			}
		}
	}()
}

// Stop cancels the listen loop and waits for it to exit.
func (l *Listener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// Pooled connections must not keep delivering notifications.
		uctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = conn.Exec(uctx, "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return err
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		e, err := decodeEvent(n.Payload)
		if err != nil {
			l.logger.Warn("ignoring malformed notification", zap.String("payload", n.Payload), zap.Error(err))
			continue
		}
		l.hub.dispatch(l.resolve(ctx, e))
	}
}

// resolve loads the persisted payload of a notified event. When the row
// cannot be read the bare id and type are still delivered.
func (l *Listener) resolve(ctx context.Context, e domain.Event) domain.Event {
	if e.Payload != nil || e.ID == uuid.Nil || l.events == nil {
		return e
	}
	lctx, cancel := context.WithTimeout(ctx, eventLoadTimeout)
	defer cancel()
	full, err := l.events.GetByID(lctx, e.ID)
	if err != nil {
		l.logger.Warn("failed to load notified event",
			zap.String("event_id", e.ID.String()),
			zap.String("event_type", e.Type),
			zap.Error(err))
		return e
	}
	return *full
}

func decodeEvent(payload string) (domain.Event, error) {
	var e domain.Event
	if payload == "" {
		return e, errors.New("empty notification payload")
	}
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return e, err
	}
	if e.Type == "" {
		return e, errors.New("notification without event type")
	}
	return e, nil
}
