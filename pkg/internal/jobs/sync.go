package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/torrentvault/pkg/cache"
	"github.com/yeisme/torrentvault/pkg/internal/search"
	"github.com/yeisme/torrentvault/pkg/internal/service"
	"github.com/yeisme/torrentvault/pkg/metrics"
)

const (
	defaultSyncBatch   = 500
	defaultSyncOverlap = 5 * time.Second
)

// ChangeSource 按 (UpdatedAt, ID) 游标提供变更记录.
type ChangeSource interface {
	ChangedSince(ctx context.Context, after service.Cursor, limit int) ([]search.Row, service.Cursor, error)
}

// IndexWriter 同步的写入端.
type IndexWriter interface {
	Upsert(ctx context.Context, rows []search.Row) error
	Reset(ctx context.Context) error
}

// Syncer 将关系库的变更增量推送到全文索引，游标保存在 KV 中.
type Syncer struct {
	source  ChangeSource
	index   IndexWriter
	state   *cache.Cache
	batch   int
	overlap time.Duration
	mu      sync.Mutex
	log     zerolog.Logger
}

// NewSyncer 创建同步器，batch<=0 时使用默认批量.
func NewSyncer(source ChangeSource, index IndexWriter, state *cache.Cache, batch int, logger zerolog.Logger) *Syncer {
	if batch <= 0 {
		batch = defaultSyncBatch
	}

	return &Syncer{
		source:  source,
		index:   index,
		state:   state,
		batch:   batch,
		overlap: defaultSyncOverlap,
		log:     logger.With().Str("job", JobIndexSync).Logger(),
	}
}

// WithOverlap 设置每次增量同步回看的时间窗，覆盖游标之后才提交的旧时间戳记录.
// d<=0 时关闭回看.
func (s *Syncer) WithOverlap(d time.Duration) *Syncer {
	s.overlap = max(d, 0)

	return s
}

func (s *Syncer) cursorKey() string {
	return s.state.Raw("cursor")
}

// Cursor 读取已保存的游标，不存在时从头开始.
func (s *Syncer) Cursor(ctx context.Context) (service.Cursor, error) {
	cur, err := cache.Get[service.Cursor](ctx, s.state, s.cursorKey())
	if cache.IsMiss(err) {
		return service.Cursor{}, nil
	}

	if err != nil {
		return service.Cursor{}, fmt.Errorf("load sync cursor: %w", err)
	}

	return cur, nil
}

// Sync 推送游标之后的全部变更，返回写入的记录数. 同一时刻只有一次同步在运行.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sync(ctx)
}

// Rebuild 清空索引与游标后全量同步.
func (s *Syncer) Rebuild(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Reset(ctx); err != nil {
		return 0, fmt.Errorf("reset index: %w", err)
	}

	if err := s.state.Delete(ctx, s.cursorKey()); err != nil && !cache.IsMiss(err) {
		return 0, fmt.Errorf("reset sync cursor: %w", err)
	}

	s.log.Info().Msg("index reset, starting full sync")

	return s.sync(ctx)
}

// sync 从回看后的游标读取变更. 回看窗口内已同步过的记录会再次写入索引（写入幂等），
// 但只统计游标之后的新记录；保存的游标只前进不后退.
func (s *Syncer) sync(ctx context.Context) (int, error) {
	saved, err := s.Cursor(ctx)
	if err != nil {
		return 0, err
	}

	cur := saved.Rewind(s.overlap)
	synced := 0

	for {
		if err := ctx.Err(); err != nil {
			return synced, err
		}

		rows, next, err := s.source.ChangedSince(ctx, cur, s.batch)
		if err != nil {
			return synced, fmt.Errorf("read changes: %w", err)
		}

		if len(rows) == 0 {
			break
		}

		if err := s.index.Upsert(ctx, rows); err != nil {
			return synced, fmt.Errorf("upsert %d rows: %w", len(rows), err)
		}

		fresh := 0

		for _, r := range rows {
			if (service.Cursor{UpdatedAt: r.UpdatedAt, ID: r.ID}).After(saved) {
				fresh++
			}
		}

		if next.After(saved) {
			if err := cache.Set(ctx, s.state, s.cursorKey(), next, 0); err != nil {
				return synced, fmt.Errorf("save sync cursor: %w", err)
			}

			saved = next
		}

		cur = next
		synced += fresh
		metrics.IndexSyncedRows.Add(float64(fresh))

		if len(rows) < s.batch {
			break
		}
	}

	if synced > 0 {
		s.log.Info().Int("rows", synced).Time("cursor", saved.UpdatedAt).Uint("cursor_id", saved.ID).Msg("index synced")
	}

	return synced, nil
}
