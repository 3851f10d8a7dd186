package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/torrentvault/pkg/internal/model"
	"github.com/yeisme/torrentvault/pkg/internal/search"
	"github.com/yeisme/torrentvault/pkg/internal/storage/db"
)

// sortColumns 排序字段到列名.
var sortColumns = map[search.SortKey]string{
	search.SortByID:        "id",
	search.SortBySize:      "filesize",
	search.SortBySeeders:   "seeders",
	search.SortByLeechers:  "leechers",
	search.SortByDownloads: "downloads",
	search.SortByComments:  "comment_count",
}

// TorrentService 种子目录与关系库检索后端.
type TorrentService struct {
	dbClient *db.Client
}

func NewTorrentService(dbc *db.Client) *TorrentService {
	return &TorrentService{dbClient: dbc}
}

// ByExactHash 按小写十六进制哈希查找，不存在时返回 (nil, nil).
func (s *TorrentService) ByExactHash(ctx context.Context, hex40 string) (*search.ContentRecord, error) {
	var t model.Torrent

	err := s.dbClient.GetDB().WithContext(ctx).
		Select("id", "info_hash", "display_name").
		Where("info_hash = ?", strings.ToLower(hex40)).
		Take(&t).Error
	if notFound(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("query info hash: %w", err)
	}

	return &search.ContentRecord{ID: t.ID, InfoHash: t.InfoHash, DisplayName: t.DisplayName}, nil
}

// Query 在关系库中检索，返回当前页与真实总数. 超出范围的页码返回空结果.
func (s *TorrentService) Query(ctx context.Context, q search.Query) ([]search.Row, int, error) {
	filtered := func() *gorm.DB {
		return s.dbClient.GetDB().WithContext(ctx).Model(&model.Torrent{}).Scopes(filterScope(q))
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count torrents: %w", err)
	}

	if total == 0 || q.Offset() >= int(total) {
		return []search.Row{}, int(total), nil
	}

	col, ok := sortColumns[q.SortKey]
	if !ok {
		col = "id"
	}

	desc := q.SortOrder != search.Ascending

	var torrents []model.Torrent

	err := filtered().Preload("Uploader").
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc}).
		Offset(q.Offset()).
		Limit(q.PerPage).
		Find(&torrents).Error
	if err != nil {
		return nil, 0, fmt.Errorf("query torrents: %w", err)
	}

	rows := make([]search.Row, 0, len(torrents))
	for i := range torrents {
		rows = append(rows, toRow(&torrents[i]).ForViewer(q))
	}

	return rows, int(total), nil
}

// filterScope 组合检索词、分类、质量、上传者与可见性条件.
func filterScope(q search.Query) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		for _, token := range search.Tokens(q.Term) {
			tx = tx.Where("LOWER(display_name) LIKE ? ESCAPE '!'", "%"+likeEscaper.Replace(strings.ToLower(token))+"%")
		}

		main, sub := q.CategoryIDs()
		if main > 0 {
			tx = tx.Where("main_category_id = ?", main)
		}

		if sub > 0 {
			tx = tx.Where("sub_category_id = ?", sub)
		}

		switch q.QualityFilter {
		case search.QualityNoRemakes:
			tx = tx.Where("remake = ?", false)
		case search.QualityTrusted:
			tx = tx.Where("trusted = ?", true)
		}

		if q.ScopedUserID != nil {
			tx = tx.Where("uploader_id = ?", *q.ScopedUserID)
		}

		return visibilityScope(tx, q)
	}
}

// visibilityScope 将可见性约束转换为查询条件.
func visibilityScope(tx *gorm.DB, q search.Query) *gorm.DB {
	v := search.VisibilityFor(q)
	if v.All {
		return tx
	}

	tx = tx.Where("deleted = ?", false)

	switch {
	case v.PublicOnly:
		tx = tx.Where("hidden = ? AND anonymous = ?", false, false)
	case v.HiddenOwner != 0:
		tx = tx.Where("hidden = ? OR uploader_id = ?", false, v.HiddenOwner)
	case v.ExcludeHidden:
		tx = tx.Where("hidden = ?", false)
	}

	return tx
}

// toRow 转换为检索结果行.
func toRow(t *model.Torrent) search.Row {
	row := search.Row{
		ID:             t.ID,
		DisplayName:    t.DisplayName,
		InfoHash:       t.InfoHash,
		Size:           t.Filesize,
		Seeders:        t.Seeders,
		Leechers:       t.Leechers,
		Downloads:      t.Downloads,
		Comments:       t.CommentCount,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		MainCategoryID: t.MainCategoryID,
		SubCategoryID:  t.SubCategoryID,
		Hidden:         t.Hidden,
		Deleted:        t.Deleted,
		Anonymous:      t.Anonymous,
		Trusted:        t.Trusted,
		Remake:         t.Remake,
	}

	if t.UploaderID != nil {
		id := *t.UploaderID
		row.UploaderID = &id
	}

	if t.Uploader != nil {
		row.UploaderName = t.Uploader.Username
	}

	return row
}

// Cursor 增量同步的位置，按 (UpdatedAt, ID) 单调推进.
type Cursor struct {
	UpdatedAt time.Time `json:"updated_at"`
	ID        uint      `json:"id"`
}

// After 按 (UpdatedAt, ID) 比较，c 严格位于 o 之后时返回 true.
func (c Cursor) After(o Cursor) bool {
	if !c.UpdatedAt.Equal(o.UpdatedAt) {
		return c.UpdatedAt.After(o.UpdatedAt)
	}

	return c.ID > o.ID
}

// Rewind 回退 d 并从该时刻的第一条记录开始，零游标保持不变.
func (c Cursor) Rewind(d time.Duration) Cursor {
	if c.UpdatedAt.IsZero() || d <= 0 {
		return c
	}

	return Cursor{UpdatedAt: c.UpdatedAt.Add(-d)}
}

// ChangedSince 返回游标之后变更过的记录（含隐藏与已删除），以及新的游标.
func (s *TorrentService) ChangedSince(ctx context.Context, after Cursor, limit int) ([]search.Row, Cursor, error) {
	if limit <= 0 {
		limit = 500
	}

	var torrents []model.Torrent

	err := s.dbClient.GetDB().WithContext(ctx).
		Preload("Uploader").
		Where("updated_at > ? OR (updated_at = ? AND id > ?)", after.UpdatedAt, after.UpdatedAt, after.ID).
		Order("updated_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&torrents).Error
	if err != nil {
		return nil, after, fmt.Errorf("query changed torrents: %w", err)
	}

	rows := make([]search.Row, 0, len(torrents))
	next := after

	for i := range torrents {
		t := &torrents[i]
		rows = append(rows, toRow(t))
		next = Cursor{UpdatedAt: t.UpdatedAt, ID: t.ID}
	}

	return rows, next, nil
}

// Count 记录总数（含隐藏与已删除）.
func (s *TorrentService) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.dbClient.GetDB().WithContext(ctx).Model(&model.Torrent{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count torrents: %w", err)
	}

	return n, nil
}
