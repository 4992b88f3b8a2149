package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okulov/mindcast_bot/internal/post"
)

// timeLayout — формат DATETIME, унаследованный от первой версии схемы.
const timeLayout = "2006-01-02 15:04:05"

// ErrNoCachedPost возвращается, когда в кэше нет неиспользованных постов.
var ErrNoCachedPost = errors.New("no unused cached post")

// Store — очередь запланированных постов и кэш заранее сгенерированных
// текстов поверх SQLite.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

// Open открывает (и при необходимости создаёт) базу данных и выполняет миграцию схемы.
func Open(path string, loc *time.Location) (*Store, error) {
	if loc == nil {
		loc = time.UTC
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite допускает одного писателя; последовательный доступ из одного
	// пула соединений избавляет от ошибок SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, loc: loc}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close закрывает базу данных.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scheduled_posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			scheduled_time DATETIME NOT NULL,
			post_text TEXT NOT NULL,
			is_sent BOOLEAN DEFAULT 0,
			is_auto_generated BOOLEAN DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS generated_posts_cache (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			generated_time DATETIME NOT NULL,
			post_text TEXT NOT NULL,
			is_used BOOLEAN DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}

	// Базы первой версии не имели столбца is_auto_generated; добавляем его,
	// если таблица была создана до миграции.
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(scheduled_posts)`)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	defer rows.Close()

	hasAutoColumn := false
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return fmt.Errorf("inspect schema: %w", err)
		}
		if name == "is_auto_generated" {
			hasAutoColumn = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}

	if !hasAutoColumn {
		if _, err := s.db.ExecContext(ctx,
			`ALTER TABLE scheduled_posts ADD COLUMN is_auto_generated BOOLEAN DEFAULT 0`); err != nil {
			return fmt.Errorf("add is_auto_generated column: %w", err)
		}
	}
	return nil
}

// Enqueue добавляет пост в очередь и возвращает его идентификатор.
func (s *Store) Enqueue(ctx context.Context, scheduledTime time.Time, text string, autoGenerated bool) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_posts (scheduled_time, post_text, is_auto_generated) VALUES (?, ?, ?)`,
		scheduledTime.In(s.loc).Format(timeLayout), text, autoGenerated)
	if err != nil {
		return 0, fmt.Errorf("enqueue post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue post: %w", err)
	}
	return id, nil
}

// ListPending возвращает неотправленные посты в порядке запланированного времени.
func (s *Store) ListPending(ctx context.Context) ([]post.ScheduledPost, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scheduled_time, post_text, is_sent, is_auto_generated
		 FROM scheduled_posts WHERE is_sent = 0 ORDER BY scheduled_time`)
	if err != nil {
		return nil, fmt.Errorf("list pending posts: %w", err)
	}
	defer rows.Close()

	var posts []post.ScheduledPost
	for rows.Next() {
		var (
			p       post.ScheduledPost
			rawTime string
		)
		if err := rows.Scan(&p.ID, &rawTime, &p.Text, &p.IsSent, &p.IsAutoGenerated); err != nil {
			return nil, fmt.Errorf("scan pending post: %w", err)
		}
		t, err := time.ParseInLocation(timeLayout, rawTime, s.loc)
		if err != nil {
			return nil, fmt.Errorf("parse scheduled_time %q: %w", rawTime, err)
		}
		p.ScheduledTime = t
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending posts: %w", err)
	}
	return posts, nil
}

// MarkSent помечает пост отправленным. Повторный вызов безвреден:
// is_sent остаётся true, других побочных эффектов нет.
func (s *Store) MarkSent(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET is_sent = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark post %d sent: %w", id, err)
	}
	return nil
}

// CacheAdd кладёт заранее сгенерированный текст в кэш.
func (s *Store) CacheAdd(ctx context.Context, generatedTime time.Time, text string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO generated_posts_cache (generated_time, post_text) VALUES (?, ?)`,
		generatedTime.In(s.loc).Format(timeLayout), text)
	if err != nil {
		return 0, fmt.Errorf("cache post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("cache post: %w", err)
	}
	return id, nil
}

// CacheTakeUnused забирает самый старый неиспользованный пост из кэша и
// помечает его использованным в той же транзакции, так что два
// последовательных вызова никогда не вернут одну и ту же запись.
func (s *Store) CacheTakeUnused(ctx context.Context) (post.CachedPost, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return post.CachedPost{}, fmt.Errorf("begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		p       post.CachedPost
		rawTime string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, generated_time, post_text FROM generated_posts_cache
		 WHERE is_used = 0 ORDER BY id LIMIT 1`).Scan(&p.ID, &rawTime, &p.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return post.CachedPost{}, ErrNoCachedPost
	}
	if err != nil {
		return post.CachedPost{}, fmt.Errorf("select cached post: %w", err)
	}

	t, err := time.ParseInLocation(timeLayout, rawTime, s.loc)
	if err != nil {
		return post.CachedPost{}, fmt.Errorf("parse generated_time %q: %w", rawTime, err)
	}
	p.GeneratedTime = t

	if _, err := tx.ExecContext(ctx,
		`UPDATE generated_posts_cache SET is_used = 1 WHERE id = ?`, p.ID); err != nil {
		return post.CachedPost{}, fmt.Errorf("mark cached post %d used: %w", p.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return post.CachedPost{}, fmt.Errorf("commit cache transaction: %w", err)
	}

	p.IsUsed = true
	return p, nil
}

// CacheCountUnused возвращает число неиспользованных постов в кэше.
func (s *Store) CacheCountUnused(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM generated_posts_cache WHERE is_used = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cached posts: %w", err)
	}
	return n, nil
}

// PurgeSentOlderThan удаляет отправленные посты старше указанного срока.
func (s *Store) PurgeSentOlderThan(ctx context.Context, now time.Time, days int) (int64, error) {
	cutoff := now.AddDate(0, 0, -days).In(s.loc).Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scheduled_posts WHERE is_sent = 1 AND scheduled_time < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sent posts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sent posts: %w", err)
	}
	return n, nil
}

// Get возвращает пост по идентификатору.
func (s *Store) Get(ctx context.Context, id int64) (post.ScheduledPost, error) {
	var (
		p       post.ScheduledPost
		rawTime string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, scheduled_time, post_text, is_sent, is_auto_generated
		 FROM scheduled_posts WHERE id = ?`, id).
		Scan(&p.ID, &rawTime, &p.Text, &p.IsSent, &p.IsAutoGenerated)
	if err != nil {
		return post.ScheduledPost{}, fmt.Errorf("get post %d: %w", id, err)
	}
	t, err := time.ParseInLocation(timeLayout, rawTime, s.loc)
	if err != nil {
		return post.ScheduledPost{}, fmt.Errorf("parse scheduled_time %q: %w", rawTime, err)
	}
	p.ScheduledTime = t
	return p, nil
}
