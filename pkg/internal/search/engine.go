package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/torrentvault/pkg/metrics"
	"github.com/yeisme/torrentvault/pkg/tracing"
)

// Deps 引擎依赖的外部协作者，Index 与 Categories 可为 nil.
type Deps struct {
	Users      UserDirectory
	Content    ContentDirectory
	Store      RelationalBackend
	Index      FullTextBackend
	Categories CategoryNamer
	Logger     *zerolog.Logger
}

// Request 单次检索请求.
type Request struct {
	Params  url.Values
	Session *User
	Feed    bool
}

// Redirect 精确哈希命中后的跳转指令.
type Redirect struct {
	ContentID uint   `json:"content_id"`
	Reason    string `json:"reason"`
}

// Outcome 恰好包含 Redirect、View、Feed 之一.
type Outcome struct {
	Redirect *Redirect
	View     *ViewModel
	Feed     *FeedDocument
}

// RedirectReasonInfoHash 跳转原因.
const RedirectReasonInfoHash = "You were redirected here because the given hash matched this torrent."

// Engine 检索入口.
type Engine struct {
	cfg        Config
	normalizer *Normalizer
	detector   *Detector
	presenter  *Presenter
	store      RelationalBackend
	index      FullTextBackend
	log        zerolog.Logger
}

// NewEngine 组装引擎. 启用全文索引但未提供索引后端时退化为仅用关系库.
func NewEngine(cfg Config, deps Deps) *Engine {
	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = deps.Logger.With().Str("component", "search").Logger()
	}

	if cfg.UseFullTextIndex && deps.Index == nil {
		logger.Warn().Msg("full-text index enabled without an index backend, using relational store only")

		cfg.UseFullTextIndex = false
	}

	return &Engine{
		cfg:        cfg,
		normalizer: NewNormalizer(deps.Users, cfg),
		detector:   NewDetector(deps.Users, deps.Content),
		presenter:  NewPresenter(cfg, deps.Categories),
		store:      deps.Store,
		index:      deps.Index,
		log:        logger,
	}
}

// Config 返回生效的引擎参数.
func (e *Engine) Config() Config {
	return e.cfg
}

// Search 规整参数、识别快捷结果、选择后端并渲染.
func (e *Engine) Search(ctx context.Context, req Request) (outcome *Outcome, err error) {
	ctx, span := tracing.StartSpan(ctx, "search.Search")
	defer span.End()

	backend := "none"
	result := "results"

	defer func() {
		if err != nil {
			result = "error"

			tracing.Fail(span, err)
		}

		metrics.SearchRequests.WithLabelValues(backend, result).Inc()
	}()

	q, err := e.normalizer.Normalize(ctx, req.Params, req.Session, req.Feed)
	if err != nil {
		return nil, err
	}

	hints, err := e.detector.Detect(ctx, q.Term, q.RenderAsFeed, q.HasScopedUser())
	if err != nil {
		return nil, err
	}

	if rec := hints.ExactHashMatch; rec != nil {
		result = "redirect"

		e.log.Debug().Uint("content_id", rec.ID).Str("info_hash", rec.InfoHash).Msg("info hash shortcut")

		return &Outcome{Redirect: &Redirect{ContentID: rec.ID, Reason: RedirectReasonInfoHash}}, nil
	}

	choice := SelectBackend(q, e.cfg.UseFullTextIndex)
	backend = choice.String()

	rs, err := e.dispatch(ctx, q, choice)
	if err != nil {
		return nil, err
	}

	e.log.Debug().
		Str("backend", backend).
		Str("term", q.Term).
		Int("page", rs.Page).
		Int("total", rs.Total).
		Bool("feed", q.RenderAsFeed).
		Msg("search dispatched")

	if q.RenderAsFeed {
		return &Outcome{Feed: e.presenter.Feed(ctx, q, rs)}, nil
	}

	return &Outcome{View: e.presenter.View(ctx, q, rs, hints)}, nil
}

// dispatch 调用选中的后端，索引路径在查询前截断页码.
func (e *Engine) dispatch(ctx context.Context, q Query, choice BackendChoice) (ResultSet, error) {
	ctx, span := tracing.StartSpan(ctx, "search.dispatch."+choice.String())
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(choice.String()).Observe(time.Since(start).Seconds())
	}()

	rs := ResultSet{Page: q.Page, RequestedPage: q.Page, Backend: choice}

	if choice == FullTextIndex {
		capped := CapPage(q.Page, q.PerPage, q.MaxResultBudget)
		if capped < q.Page {
			metrics.SearchPageCapped.Inc()
		}

		rows, reported, err := e.index.Query(ctx, q.WithPage(capped), capped)
		if err != nil {
			tracing.Fail(span, err)
			return ResultSet{}, wrapUnavailable("full-text index", err)
		}

		rs.Rows = rows
		rs.Page = capped
		rs.Total = CapTotal(reported, q.MaxResultBudget)
		rs.TotalCapped = reported > rs.Total

		return rs, nil
	}

	// 启用索引时关系库只承担无检索词的浏览.
	if e.cfg.UseFullTextIndex {
		q = q.WithTerm("")
	}

	rows, total, err := e.store.Query(ctx, q)
	if err != nil {
		tracing.Fail(span, err)
		return ResultSet{}, wrapUnavailable("relational store", err)
	}

	rs.Rows = rows
	rs.Total = max(total, 0)

	return rs, nil
}

func wrapUnavailable(what string, err error) error {
	if errors.Is(err, ErrBackendUnavailable) {
		return err
	}

	return fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, what, err)
}
