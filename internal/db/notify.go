package db

import (
	"context"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Notifier announces completed simulation sessions to instructor
// dashboards.
type Notifier interface {
	Notify(ctx context.Context, sessionID string) error
	// Listen yields session ids until ctx is cancelled, then closes the
	// channel.
	Listen(ctx context.Context) (<-chan string, error)
}

// NewNotifier returns the notifier suited to the database: LISTEN/NOTIFY
// on Postgres, an in-process fan-out otherwise.  The channel should match
// the POSTGRES_NOTIFY_CHANNEL environment variable.
func NewNotifier(db *DB, channel string) Notifier {
	if db.Dialect == Postgres {
		return &PGNotifier{DB: db, Channel: channel}
	}
	return NewLocalNotifier()
}

// PGNotifier wraps the LISTEN/NOTIFY mechanism in PostgreSQL.
type PGNotifier struct {
	DB      *DB
	Channel string
}

// Notify sends a notification to the channel with the session ID as
// payload.
func (n *PGNotifier) Notify(ctx context.Context, sessionID string) error {
	_, err := n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, sessionID)
	return err
}

// Listen opens a dedicated listener connection.  The listener reconnects on
// its own; notifications sent while it is down are lost.
func (n *PGNotifier) Listen(ctx context.Context) (<-chan string, error) {
	listener := pq.NewListener(n.DB.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logrus.WithError(err).WithField("event", ev).Warn("notification listener event")
		}
	})
	if err := listener.Listen(n.Channel); err != nil {
		listener.Close()
		return nil, err
	}

	ch := make(chan string)
	go func() {
		defer func() {
			_ = listener.Close()
			close(ch)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case note := <-listener.Notify:
				// nil after a reconnect
				if note == nil {
					continue
				}
				select {
				case ch <- note.Extra:
				case <-ctx.Done():
					return
				}
			case <-time.After(90 * time.Second):
				if err := listener.Ping(); err != nil {
					logrus.WithError(err).Warn("notification listener ping failed")
				}
			}
		}
	}()
	return ch, nil
}

// LocalNotifier fans notifications out to listeners of the same process.
// Slow listeners miss notifications rather than block Notify.
type LocalNotifier struct {
	mu        sync.Mutex
	listeners map[chan string]struct{}
}

// NewLocalNotifier constructs a LocalNotifier.
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{listeners: make(map[chan string]struct{})}
}

// Notify delivers sessionID to every current listener.
func (n *LocalNotifier) Notify(_ context.Context, sessionID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.listeners {
		select {
		case ch <- sessionID:
		default:
			logrus.WithField("session", sessionID).Debug("listener busy, notification dropped")
		}
	}
	return nil
}

// Listen registers a listener until ctx is cancelled.
func (n *LocalNotifier) Listen(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 16)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.listeners, ch)
		close(ch)
		n.mu.Unlock()
	}()
	return ch, nil
}
