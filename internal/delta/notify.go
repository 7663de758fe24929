package delta

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// Notification is one payload delivered on a LISTEN channel.
type Notification struct {
	Channel string
	Payload string
}

// Listener wraps a dedicated pgx connection LISTENing on a channel, for
// the whitelist distributor (spec.md §4.6 side effect hooks,
// supplemental feature 5: "historic_whitelist inserts and end_date
// updates post a per-row notification on a named channel"). It must own
// its own connection, never one drawn from the pooled business
// connections, since LISTEN state is per-session.
type Listener struct {
	conn    *pgx.Conn
	channel string
}

// Listen issues LISTEN <channel> on conn and returns a Listener that
// owns conn for its lifetime (Close releases it).
func Listen(ctx context.Context, conn *pgx.Conn, channel string) (*Listener, error) {
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		return nil, errs.NewTransientDbError("listen on channel", err)
	}
	return &Listener{conn: conn, channel: channel}, nil
}

// WaitForNotification blocks until one notification arrives or ctx is
// done.
func (l *Listener) WaitForNotification(ctx context.Context) (Notification, error) {
	n, err := l.conn.WaitForNotification(ctx)
	if err != nil {
		return Notification{}, errs.NewTransientDbError("wait for notification", err)
	}
	return Notification{Channel: n.Channel, Payload: n.Payload}, nil
}

// Close releases the underlying connection.
func (l *Listener) Close(ctx context.Context) error {
	return l.conn.Close(ctx)
}
