package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/yeisme/torrentvault/pkg/configs"
	"github.com/yeisme/torrentvault/pkg/internal/search"
)

func init() {
	Register(configs.IndexSQLite, func(ctx context.Context, cfg configs.IndexConfig) (Index, error) {
		return OpenSQLite(ctx, cfg.SQLite.Path)
	})
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY,
		display_name TEXT NOT NULL,
		info_hash TEXT NOT NULL,
		filesize INTEGER NOT NULL DEFAULT 0,
		seeders INTEGER NOT NULL DEFAULT 0,
		leechers INTEGER NOT NULL DEFAULT 0,
		downloads INTEGER NOT NULL DEFAULT 0,
		comment_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		main_category_id INTEGER NOT NULL,
		sub_category_id INTEGER NOT NULL,
		uploader_id INTEGER,
		uploader_name TEXT NOT NULL DEFAULT '',
		hidden INTEGER NOT NULL DEFAULT 0,
		deleted INTEGER NOT NULL DEFAULT 0,
		anonymous INTEGER NOT NULL DEFAULT 0,
		trusted INTEGER NOT NULL DEFAULT 0,
		remake INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS listings_fts USING fts5(
		display_name,
		content='listings',
		content_rowid='id',
		tokenize='porter unicode61'
	)`,
	`CREATE TRIGGER IF NOT EXISTS listings_ai AFTER INSERT ON listings BEGIN
		INSERT INTO listings_fts(rowid, display_name) VALUES (new.id, new.display_name);
	END`,
	`CREATE TRIGGER IF NOT EXISTS listings_ad AFTER DELETE ON listings BEGIN
		INSERT INTO listings_fts(listings_fts, rowid, display_name) VALUES ('delete', old.id, old.display_name);
	END`,
	`CREATE TRIGGER IF NOT EXISTS listings_au AFTER UPDATE ON listings BEGIN
		INSERT INTO listings_fts(listings_fts, rowid, display_name) VALUES ('delete', old.id, old.display_name);
		INSERT INTO listings_fts(rowid, display_name) VALUES (new.id, new.display_name);
	END`,
	`CREATE INDEX IF NOT EXISTS idx_listings_category ON listings(main_category_id, sub_category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_uploader ON listings(uploader_id)`,
}

const listingColumns = `l.id, l.display_name, l.info_hash, l.filesize, l.seeders, l.leechers, l.downloads,
	l.comment_count, l.created_at, l.main_category_id, l.sub_category_id, l.uploader_id, l.uploader_name,
	l.hidden, l.deleted, l.anonymous, l.trusted, l.remake`

// SQLiteIndex 基于 FTS5 的嵌入式全文索引.
type SQLiteIndex struct {
	db *sql.DB
}

// OpenSQLite 打开或创建索引文件并建立表结构.
func OpenSQLite(ctx context.Context, path string) (*SQLiteIndex, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	dsn := "file:" + path +
		"?_pragma=busy_timeout(30000)&_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=temp_store(memory)"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying index schema: %w", err)
		}
	}

	return &SQLiteIndex{db: db}, nil
}

// Upsert 在单个事务中写入记录，FTS 表由触发器维护.
func (s *SQLiteIndex) Upsert(ctx context.Context, rows []search.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (id, display_name, info_hash, filesize, seeders, leechers, downloads,
			comment_count, created_at, main_category_id, sub_category_id, uploader_id, uploader_name,
			hidden, deleted, anonymous, trusted, remake)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			info_hash = excluded.info_hash,
			filesize = excluded.filesize,
			seeders = excluded.seeders,
			leechers = excluded.leechers,
			downloads = excluded.downloads,
			comment_count = excluded.comment_count,
			created_at = excluded.created_at,
			main_category_id = excluded.main_category_id,
			sub_category_id = excluded.sub_category_id,
			uploader_id = excluded.uploader_id,
			uploader_name = excluded.uploader_name,
			hidden = excluded.hidden,
			deleted = excluded.deleted,
			anonymous = excluded.anonymous,
			trusted = excluded.trusted,
			remake = excluded.remake`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		var uploader sql.NullInt64
		if r.UploaderID != nil {
			uploader = sql.NullInt64{Int64: int64(*r.UploaderID), Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			int64(r.ID), r.DisplayName, r.InfoHash, r.Size, r.Seeders, r.Leechers, r.Downloads,
			r.Comments, r.CreatedAt.Unix(), r.MainCategoryID, r.SubCategoryID, uploader, r.UploaderName,
			r.Hidden, r.Deleted, r.Anonymous, r.Trusted, r.Remake,
		)
		if err != nil {
			return fmt.Errorf("upserting listing %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}

	committed = true

	return nil
}

// Query 检索 cappedPage 页，总数最多统计到预算加一.
func (s *SQLiteIndex) Query(ctx context.Context, q search.Query, cappedPage int) ([]search.Row, int, error) {
	match := matchExpression(q.Term)
	if match == "" {
		return []search.Row{}, 0, nil
	}

	where, args := sqliteFilters(q)
	where = append([]string{"listings_fts MATCH ?"}, where...)
	args = append([]any{match}, args...)

	from := " FROM listings_fts JOIN listings l ON l.id = listings_fts.rowid WHERE " + strings.Join(where, " AND ")

	var total int
	countSQL := "SELECT COUNT(*) FROM (SELECT 1" + from + " LIMIT ?)"

	if err := s.db.QueryRowContext(ctx, countSQL, append(args, countLimit(q.MaxResultBudget))...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting matches: %w", err)
	}

	dir := "DESC"
	if q.SortOrder == search.Ascending {
		dir = "ASC"
	}

	offset := search.PageOffset(cappedPage, q.PerPage)
	querySQL := fmt.Sprintf("SELECT %s%s ORDER BY l.%s %s, l.id %s LIMIT ? OFFSET ?",
		listingColumns, from, sortField(q.SortKey), dir, dir)

	rs, err := s.db.QueryContext(ctx, querySQL, append(args, q.PerPage, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying matches: %w", err)
	}
	defer rs.Close()

	rows := make([]search.Row, 0, q.PerPage)

	for rs.Next() {
		r, err := scanListing(rs)
		if err != nil {
			return nil, 0, err
		}

		rows = append(rows, r.ForViewer(q))
	}

	if err := rs.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating matches: %w", err)
	}

	return rows, total, nil
}

// Count 索引中的记录总数.
func (s *SQLiteIndex) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting listings: %w", err)
	}

	return n, nil
}

// Reset 清空索引，FTS 表随触发器一并清空.
func (s *SQLiteIndex) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM listings"); err != nil {
		return fmt.Errorf("clearing listings: %w", err)
	}

	return nil
}

func (s *SQLiteIndex) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// matchExpression 将每个词转换为 FTS5 短语，多个短语之间为 AND.
func matchExpression(term string) string {
	tokens := search.Tokens(term)
	phrases := make([]string, 0, len(tokens))

	for _, t := range tokens {
		phrases = append(phrases, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}

	return strings.Join(phrases, " ")
}

// sqliteFilters 构造分类、质量、上传者与可见性条件.
func sqliteFilters(q search.Query) ([]string, []any) {
	var (
		where []string
		args  []any
	)

	main, sub := q.CategoryIDs()
	if main > 0 {
		where = append(where, "l.main_category_id = ?")
		args = append(args, main)
	}

	if sub > 0 {
		where = append(where, "l.sub_category_id = ?")
		args = append(args, sub)
	}

	switch q.QualityFilter {
	case search.QualityNoRemakes:
		where = append(where, "l.remake = 0")
	case search.QualityTrusted:
		where = append(where, "l.trusted = 1")
	}

	if q.ScopedUserID != nil {
		where = append(where, "l.uploader_id = ?")
		args = append(args, int64(*q.ScopedUserID))
	}

	v := search.VisibilityFor(q)
	if v.All {
		return where, args
	}

	where = append(where, "l.deleted = 0")

	switch {
	case v.PublicOnly:
		where = append(where, "l.hidden = 0 AND l.anonymous = 0")
	case v.HiddenOwner != 0:
		where = append(where, "(l.hidden = 0 OR l.uploader_id = ?)")
		args = append(args, int64(v.HiddenOwner))
	case v.ExcludeHidden:
		where = append(where, "l.hidden = 0")
	}

	return where, args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanListing(sc scanner) (search.Row, error) {
	var (
		r        search.Row
		id       int64
		created  int64
		uploader sql.NullInt64
	)

	err := sc.Scan(&id, &r.DisplayName, &r.InfoHash, &r.Size, &r.Seeders, &r.Leechers, &r.Downloads,
		&r.Comments, &created, &r.MainCategoryID, &r.SubCategoryID, &uploader, &r.UploaderName,
		&r.Hidden, &r.Deleted, &r.Anonymous, &r.Trusted, &r.Remake)
	if err != nil {
		return search.Row{}, fmt.Errorf("scanning listing: %w", err)
	}

	r.ID = uint(id)
	r.CreatedAt = time.Unix(created, 0).UTC()

	if uploader.Valid {
		u := uint(uploader.Int64)
		r.UploaderID = &u
	}

	return r, nil
}
