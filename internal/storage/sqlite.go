package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "raspbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Store wraps the SQLite database. A nil *Store is safe to call; every method
// returns ErrDisabled.
type Store struct {
	db  *sql.DB
	log logx.Logger
}

// Open initializes the configured store. It returns (nil, nil) if storage is
// disabled (empty path).
func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &Store{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) disabled() bool { return s == nil || s.db == nil }

// ---- users ----

func (s *Store) UpsertUser(ctx context.Context, u User) error {
	if s.disabled() {
		return ErrDisabled
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(userid, grp, subgroup, username, daily_notify, notify_time, created_at)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(userid) DO UPDATE SET
		   grp=excluded.grp, subgroup=excluded.subgroup, username=excluded.username,
		   daily_notify=excluded.daily_notify, notify_time=excluded.notify_time`,
		u.UserID, u.Group, u.Subgroup, nullStr(u.Username),
		boolInt(u.DailyNotify), nullStr(u.NotifyTime), u.CreatedAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetUser(ctx context.Context, userID int64) (User, bool, error) {
	if s.disabled() {
		return User{}, false, ErrDisabled
	}
	var (
		u         User
		username  sql.NullString
		notify    sql.NullString
		notifyOn  int
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT userid, grp, subgroup, username, daily_notify, notify_time, created_at
		 FROM users WHERE userid = ?`, userID,
	).Scan(&u.UserID, &u.Group, &u.Subgroup, &username, &notifyOn, &notify, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	u.Username = username.String
	u.NotifyTime = notify.String
	u.DailyNotify = notifyOn != 0
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return u, true, nil
}

// NotifiableUsers returns users with daily notifications enabled and a group set.
func (s *Store) NotifiableUsers(ctx context.Context) ([]User, error) {
	if s.disabled() {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT userid, grp, subgroup, username, daily_notify, notify_time, created_at
		 FROM users WHERE daily_notify = 1 AND grp != '' ORDER BY userid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var (
			u         User
			username  sql.NullString
			notify    sql.NullString
			notifyOn  int
			createdAt string
		)
		if err := rows.Scan(&u.UserID, &u.Group, &u.Subgroup, &username, &notifyOn, &notify, &createdAt); err != nil {
			return nil, err
		}
		u.Username = username.String
		u.NotifyTime = notify.String
		u.DailyNotify = notifyOn != 0
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, u)
	}
	return out, rows.Err()
}

// AllUserIDs returns every registered private-chat user, for broadcasts.
func (s *Store) AllUserIDs(ctx context.Context) ([]int64, error) {
	if s.disabled() {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `SELECT userid FROM users ORDER BY userid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ---- chats ----

func (s *Store) UpsertChat(ctx context.Context, c Chat) error {
	if s.disabled() {
		return ErrDisabled
	}
	if c.RegisteredAt.IsZero() {
		c.RegisteredAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats(chat_id, grp, registered_at) VALUES(?,?,?)
		 ON CONFLICT(chat_id) DO UPDATE SET grp=excluded.grp`,
		c.ChatID, c.Group, c.RegisteredAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) AllChats(ctx context.Context) ([]Chat, error) {
	if s.disabled() {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id, grp, registered_at FROM chats ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chat
	for rows.Next() {
		var (
			c  Chat
			at string
		)
		if err := rows.Scan(&c.ChatID, &c.Group, &at); err != nil {
			return nil, err
		}
		c.RegisteredAt, _ = time.Parse(time.RFC3339, at)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- holidays ----

func (s *Store) AddHoliday(ctx context.Context, h Holiday) error {
	if s.disabled() {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO holidays(grp, kind, start_date, end_date) VALUES(?,?,?,?)`,
		h.Group, h.Kind, h.StartDate, h.EndDate,
	)
	return err
}

// HolidayOn reports whether the date (YYYY-MM-DD) falls into a holiday for the
// group (or for "all"), returning the holiday kind.
func (s *Store) HolidayOn(ctx context.Context, group, date string) (string, bool, error) {
	if s.disabled() {
		return "", false, ErrDisabled
	}
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT kind FROM holidays
		 WHERE (grp = ? OR grp = 'all') AND start_date <= ? AND end_date >= ?
		 LIMIT 1`, group, date, date,
	).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return kind, true, nil
}

func (s *Store) ListHolidays(ctx context.Context) ([]Holiday, error) {
	if s.disabled() {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, grp, kind, start_date, end_date FROM holidays ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Group, &h.Kind, &h.StartDate, &h.EndDate); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ---- bans ----

func (s *Store) PutBan(ctx context.Context, userID int64, until time.Time) error {
	if s.disabled() {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bans(userid, until_ms) VALUES(?,?)
		 ON CONFLICT(userid) DO UPDATE SET until_ms=excluded.until_ms`,
		userID, until.UnixMilli(),
	)
	return err
}

func (s *Store) GetBan(ctx context.Context, userID int64) (time.Time, bool, error) {
	if s.disabled() {
		return time.Time{}, false, ErrDisabled
	}
	var ms int64
	err := s.db.QueryRowContext(ctx, `SELECT until_ms FROM bans WHERE userid = ?`, userID).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

// PruneBans removes bans that expired before now and reports how many.
func (s *Store) PruneBans(ctx context.Context, now time.Time) (int64, error) {
	if s.disabled() {
		return 0, ErrDisabled
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM bans WHERE until_ms < ?`, now.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ---- feedback ----

func (s *Store) AddFeedback(ctx context.Context, f Feedback) error {
	if s.disabled() {
		return ErrDisabled
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback(userid, username, text, created_at) VALUES(?,?,?,?)`,
		f.UserID, nullStr(f.Username), f.Text, f.CreatedAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) RecentFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	if s.disabled() {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, userid, username, text, created_at FROM feedback
		 ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var (
			f        Feedback
			username sql.NullString
			at       string
		)
		if err := rows.Scan(&f.ID, &f.UserID, &username, &f.Text, &at); err != nil {
			return nil, err
		}
		f.Username = username.String
		f.CreatedAt, _ = time.Parse(time.RFC3339, at)
		out = append(out, f)
	}
	return out, rows.Err()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
