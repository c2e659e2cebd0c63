// Package ledger audits webhook deliveries in SQLite.
//
// Every delivery gets a row when it arrives and a terminal status when
// processing ends, so operators can answer "what happened to that webhook"
// after the fact. The ledger also owns the optional dedupe claims table:
// the platform retries non-2xx deliveries, and a deployment that was
// already approved must not be approved twice when dedupe is enabled.
//
// Recording is best-effort by contract. Callers treat ledger failures as
// log-worthy, never as a reason to fail the delivery itself.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Ledger struct {
	db *sql.DB
}

func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Record opens a ledger row for an inbound delivery and returns its id.
// messageID and eventType may be empty for deliveries rejected before
// verification or parsing completed.
func (l *Ledger) Record(ctx context.Context, messageID, eventType string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := l.db.ExecContext(ctx, `
INSERT INTO deliveries(id, message_id, event_type, status, received_at)
VALUES(?, ?, ?, ?, ?);
`, id, messageID, eventType, StatusReceived, now)
	if err != nil {
		return "", fmt.Errorf("record delivery: %w", err)
	}
	return id, nil
}

// Finish closes a delivery row with its terminal status.
func (l *Ledger) Finish(ctx context.Context, deliveryID string, status Status, message string) error {
	if deliveryID == "" {
		return fmt.Errorf("deliveryID is empty")
	}
	if status != StatusHandled && status != StatusNoAction && status != StatusRejected && status != StatusFailed {
		return fmt.Errorf("invalid terminal status: %q", status)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	var msg any
	if message != "" {
		msg = message
	}

	res, err := l.db.ExecContext(ctx, `
UPDATE deliveries
SET status = ?, message = ?, finished_at = ?
WHERE id = ?;
`, status, msg, now, deliveryID)
	if err != nil {
		return fmt.Errorf("finish delivery: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDeliveryNotFound
	}
	return nil
}

// Claim tries to claim a message id for processing. It returns true when
// this process holds the claim (first delivery, or a previous claim older
// than ttl) and false when another recent delivery already claimed it.
//
// Message ids without a value cannot be deduplicated and always claim.
func (l *Ledger) Claim(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	if messageID == "" {
		return true, nil
	}

	now := time.Now().UTC()
	stale := now.Add(-ttl).Format(time.RFC3339Nano)

	res, err := l.db.ExecContext(ctx, `
INSERT INTO dedupe_claims(message_id, claimed_at)
VALUES(?, ?)
ON CONFLICT(message_id) DO UPDATE SET claimed_at = excluded.claimed_at
WHERE dedupe_claims.claimed_at < ?;
`, messageID, now.Format(time.RFC3339Nano), stale)
	if err != nil {
		return false, fmt.Errorf("claim delivery: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim delivery: %w", err)
	}
	return n > 0, nil
}

// Recent returns the newest deliveries, most recent first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx, `
SELECT id, message_id, event_type, status, message, received_at, finished_at
FROM deliveries
ORDER BY received_at DESC, rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := make([]Delivery, 0, limit)
	for rows.Next() {
		var (
			d          Delivery
			statusS    string
			message    sql.NullString
			receivedS  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.MessageID, &d.EventType, &statusS, &message, &receivedS, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}

		d.Status = Status(statusS)
		if message.Valid {
			d.Message = &message.String
		}
		if t, err := time.Parse(time.RFC3339Nano, receivedS); err == nil {
			d.ReceivedAt = t
		}
		if finishedAt.Valid {
			if t, err := time.Parse(time.RFC3339Nano, finishedAt.String); err == nil {
				d.FinishedAt = &t
			}
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return deliveries, nil
}

// Stats aggregates delivery counts by status.
func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	var s Stats

	rows, err := l.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM deliveries GROUP BY status;`)
	if err != nil {
		return Stats{}, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			statusS string
			count   int
		)
		if err := rows.Scan(&statusS, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		s.Total += count
		switch Status(statusS) {
		case StatusHandled:
			s.Handled = count
		case StatusNoAction:
			s.NoAction = count
		case StatusRejected:
			s.Rejected = count
		case StatusFailed:
			s.Failed = count
		case StatusReceived:
			s.Pending = count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("ledger stats: %w", err)
	}

	var last sql.NullString
	if err := l.db.QueryRowContext(ctx, `SELECT MAX(received_at) FROM deliveries;`).Scan(&last); err != nil {
		return Stats{}, fmt.Errorf("ledger stats: %w", err)
	}
	if last.Valid {
		if t, err := time.Parse(time.RFC3339Nano, last.String); err == nil {
			s.LastReceivedAt = &t
		}
	}
	return s, nil
}

// Prune removes deliveries and dedupe claims older than retention and
// returns the number of deliveries removed.
func (l *Ledger) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339Nano)

	res, err := l.db.ExecContext(ctx, `DELETE FROM deliveries WHERE received_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	removed, _ := res.RowsAffected()

	if _, err := l.db.ExecContext(ctx, `DELETE FROM dedupe_claims WHERE claimed_at < ?;`, cutoff); err != nil {
		return removed, fmt.Errorf("prune dedupe claims: %w", err)
	}
	return removed, nil
}
