// Package store persists the user-facing engagement data: accounts,
// comments, votes, watchlists and topic alerts. Bill data itself lives in
// the cache layer; rows here reference bills by their stable bill_id.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrNotFound is returned when the referenced row does not exist or does not
// belong to the caller.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate is returned on unique-constraint violations surfaced to the
// caller (duplicate email, duplicate alert).
var ErrDuplicate = errors.New("store: duplicate")

// Vote values accepted by CastVote.
const (
	VoteUp   = "up"
	VoteDown = "down"
)

type Store struct {
	DB *sql.DB
}

// NewWithDSN opens a postgres connection and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// Comment is one user comment on a bill.
type Comment struct {
	ID        string    `json:"id"`
	BillID    string    `json:"bill_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// WatchItem is one watchlist entry.
type WatchItem struct {
	BillID  string    `json:"bill_id"`
	AddedAt time.Time `json:"added_at"`
}

// TopicAlert subscribes a user to a topic tag. Delivery is handled by an
// external collaborator; rows here only record the subscription.
type TopicAlert struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (string, error) {
	id := uuid.NewString()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`,
		id, email, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("creating user: %w", err)
	}
	return id, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id, passwordHash string, err error) {
	err = s.DB.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE email=$1`, email).
		Scan(&id, &passwordHash)
	if err == sql.ErrNoRows {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("looking up user: %w", err)
	}
	return id, passwordHash, nil
}

func (s *Store) AddComment(ctx context.Context, userID, billID, content string) (Comment, error) {
	c := Comment{
		ID:        uuid.NewString(),
		BillID:    billID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO comments (id, bill_id, user_id, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.BillID, c.UserID, c.Content, c.CreatedAt)
	if err != nil {
		return Comment{}, fmt.Errorf("adding comment: %w", err)
	}
	if err := s.DB.QueryRowContext(ctx,
		`SELECT email FROM users WHERE id=$1`, c.UserID).Scan(&c.Email); err != nil && err != sql.ErrNoRows {
		return Comment{}, fmt.Errorf("resolving commenter: %w", err)
	}
	return c, nil
}

func (s *Store) ListComments(ctx context.Context, billID string) ([]Comment, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT c.id, c.bill_id, c.user_id, u.email, c.content, c.created_at
		 FROM comments c JOIN users u ON u.id = c.user_id
		 WHERE c.bill_id=$1 ORDER BY c.created_at DESC`, billID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.BillID, &c.UserID, &c.Email, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// DeleteComment removes a comment owned by userID.
func (s *Store) DeleteComment(ctx context.Context, commentID, userID string) error {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM comments WHERE id=$1 AND user_id=$2`, commentID, userID)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CastVote records or changes a user's vote on a bill. One vote per user per
// bill; a second cast overwrites the first.
func (s *Store) CastVote(ctx context.Context, userID, billID, value string) error {
	if value != VoteUp && value != VoteDown {
		return fmt.Errorf("invalid vote value %q", value)
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO votes (user_id, bill_id, value) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, bill_id) DO UPDATE SET value = EXCLUDED.value`,
		userID, billID, value)
	if err != nil {
		return fmt.Errorf("casting vote: %w", err)
	}
	return nil
}

func (s *Store) VoteCounts(ctx context.Context, billID string) (up, down int, err error) {
	err = s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE value='up'), COUNT(*) FILTER (WHERE value='down')
		 FROM votes WHERE bill_id=$1`, billID).Scan(&up, &down)
	if err != nil {
		return 0, 0, fmt.Errorf("counting votes: %w", err)
	}
	return up, down, nil
}

func (s *Store) Watchlist(ctx context.Context, userID string) ([]WatchItem, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT bill_id, added_at FROM watchlist WHERE user_id=$1 ORDER BY added_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing watchlist: %w", err)
	}
	defer rows.Close()

	items := []WatchItem{}
	for rows.Next() {
		var w WatchItem
		if err := rows.Scan(&w.BillID, &w.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning watchlist: %w", err)
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

func (s *Store) AddToWatchlist(ctx context.Context, userID, billID string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO watchlist (user_id, bill_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, bill_id) DO NOTHING`, userID, billID)
	if err != nil {
		return fmt.Errorf("adding to watchlist: %w", err)
	}
	return nil
}

func (s *Store) RemoveFromWatchlist(ctx context.Context, userID, billID string) error {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM watchlist WHERE user_id=$1 AND bill_id=$2`, userID, billID)
	if err != nil {
		return fmt.Errorf("removing from watchlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListAlerts(ctx context.Context, userID string) ([]TopicAlert, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, topic, created_at FROM topic_alerts WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	alerts := []TopicAlert{}
	for rows.Next() {
		var a TopicAlert
		if err := rows.Scan(&a.ID, &a.Topic, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// CreateAlert subscribes a user to a topic. One alert per user per topic.
func (s *Store) CreateAlert(ctx context.Context, userID, topic string) (string, error) {
	id := uuid.NewString()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO topic_alerts (id, user_id, topic) VALUES ($1, $2, $3)`,
		id, userID, topic)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("creating alert: %w", err)
	}
	return id, nil
}

func (s *Store) DeleteAlert(ctx context.Context, alertID, userID string) error {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM topic_alerts WHERE id=$1 AND user_id=$2`, alertID, userID)
	if err != nil {
		return fmt.Errorf("deleting alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
