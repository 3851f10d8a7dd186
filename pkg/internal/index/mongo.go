package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yeisme/torrentvault/pkg/configs"
	"github.com/yeisme/torrentvault/pkg/internal/search"
)

func init() {
	Register(configs.IndexMongo, func(ctx context.Context, cfg configs.IndexConfig) (Index, error) {
		return OpenMongo(ctx, cfg.Mongo)
	})
}

// listingDoc 索引集合中的文档.
type listingDoc struct {
	ID             uint      `bson:"_id"`
	DisplayName    string    `bson:"display_name"`
	InfoHash       string    `bson:"info_hash"`
	Filesize       int64     `bson:"filesize"`
	Seeders        int       `bson:"seeders"`
	Leechers       int       `bson:"leechers"`
	Downloads      int       `bson:"downloads"`
	CommentCount   int       `bson:"comment_count"`
	CreatedAt      time.Time `bson:"created_at"`
	MainCategoryID int       `bson:"main_category_id"`
	SubCategoryID  int       `bson:"sub_category_id"`
	UploaderID     *uint     `bson:"uploader_id"`
	UploaderName   string    `bson:"uploader_name"`
	Hidden         bool      `bson:"hidden"`
	Deleted        bool      `bson:"deleted"`
	Anonymous      bool      `bson:"anonymous"`
	Trusted        bool      `bson:"trusted"`
	Remake         bool      `bson:"remake"`
}

func toDoc(r search.Row) listingDoc {
	return listingDoc{
		ID:             r.ID,
		DisplayName:    r.DisplayName,
		InfoHash:       r.InfoHash,
		Filesize:       r.Size,
		Seeders:        r.Seeders,
		Leechers:       r.Leechers,
		Downloads:      r.Downloads,
		CommentCount:   r.Comments,
		CreatedAt:      r.CreatedAt.UTC(),
		MainCategoryID: r.MainCategoryID,
		SubCategoryID:  r.SubCategoryID,
		UploaderID:     r.UploaderID,
		UploaderName:   r.UploaderName,
		Hidden:         r.Hidden,
		Deleted:        r.Deleted,
		Anonymous:      r.Anonymous,
		Trusted:        r.Trusted,
		Remake:         r.Remake,
	}
}

func (d listingDoc) row() search.Row {
	return search.Row{
		ID:             d.ID,
		DisplayName:    d.DisplayName,
		InfoHash:       d.InfoHash,
		Size:           d.Filesize,
		Seeders:        d.Seeders,
		Leechers:       d.Leechers,
		Downloads:      d.Downloads,
		Comments:       d.CommentCount,
		CreatedAt:      d.CreatedAt,
		MainCategoryID: d.MainCategoryID,
		SubCategoryID:  d.SubCategoryID,
		UploaderID:     d.UploaderID,
		UploaderName:   d.UploaderName,
		Hidden:         d.Hidden,
		Deleted:        d.Deleted,
		Anonymous:      d.Anonymous,
		Trusted:        d.Trusted,
		Remake:         d.Remake,
	}
}

// MongoIndex 基于 $text 文本索引的全文索引.
type MongoIndex struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// OpenMongo 连接 MongoDB 并确保索引存在.
func OpenMongo(ctx context.Context, cfg configs.MongoIndexConfig) (*MongoIndex, error) {
	timeout := time.Duration(max(cfg.TimeoutSeconds, 1)) * time.Second

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(100).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(5 * time.Minute)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("连接MongoDB失败: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB Ping失败: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "display_name", Value: "text"}}},
		{Keys: bson.D{{Key: "main_category_id", Value: 1}, {Key: "sub_category_id", Value: 1}}},
		{Keys: bson.D{{Key: "uploader_id", Value: 1}}},
		{Keys: bson.D{{Key: "seeders", Value: -1}}},
	}

	if _, err := coll.Indexes().CreateMany(connectCtx, indexModels); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("创建索引失败: %w", err)
	}

	return &MongoIndex{client: client, collection: coll, timeout: timeout}, nil
}

func (m *MongoIndex) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.timeout)
}

// Upsert 以 ReplaceOne upsert 批量写入.
func (m *MongoIndex) Upsert(ctx context.Context, rows []search.Row) error {
	if len(rows) == 0 {
		return nil
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	writes := make([]mongo.WriteModel, 0, len(rows))
	for _, r := range rows {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": r.ID}).
			SetReplacement(toDoc(r)).
			SetUpsert(true))
	}

	if _, err := m.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("bulk upsert listings: %w", err)
	}

	return nil
}

// Query 检索 cappedPage 页，总数最多统计到预算加一.
func (m *MongoIndex) Query(ctx context.Context, q search.Query, cappedPage int) ([]search.Row, int, error) {
	filter := mongoFilter(q)
	if filter == nil {
		return []search.Row{}, 0, nil
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	countOpts := options.Count()
	if limit := countLimit(q.MaxResultBudget); limit >= 0 {
		countOpts.SetLimit(int64(limit))
	}

	total, err := m.collection.CountDocuments(ctx, filter, countOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	findOpts := options.Find().
		SetSort(mongoSort(q)).
		SetSkip(int64(search.PageOffset(cappedPage, q.PerPage))).
		SetLimit(int64(q.PerPage))

	cursor, err := m.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("find listings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []listingDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode listings: %w", err)
	}

	rows := make([]search.Row, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, d.row().ForViewer(q))
	}

	return rows, int(total), nil
}

// Count 集合中的文档总数.
func (m *MongoIndex) Count(ctx context.Context) (int64, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	return m.collection.EstimatedDocumentCount(ctx)
}

// Reset 删除全部文档，保留索引定义.
func (m *MongoIndex) Reset(ctx context.Context) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if _, err := m.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear listings: %w", err)
	}

	return nil
}

func (m *MongoIndex) Ping(ctx context.Context) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoIndex) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	return m.client.Disconnect(ctx)
}

// textSearch 每个词作为带引号的短语，$text 对多个短语取交集.
func textSearch(term string) string {
	tokens := search.Tokens(term)
	phrases := make([]string, 0, len(tokens))

	for _, t := range tokens {
		phrases = append(phrases, `"`+strings.ReplaceAll(t, `"`, ``)+`"`)
	}

	return strings.Join(phrases, " ")
}

// mongoFilter 组合文本检索、分类、质量、上传者与可见性条件. 检索词为空时返回 nil.
func mongoFilter(q search.Query) bson.D {
	text := textSearch(q.Term)
	if text == "" {
		return nil
	}

	filter := bson.D{{Key: "$text", Value: bson.M{"$search": text}}}

	main, sub := q.CategoryIDs()
	if main > 0 {
		filter = append(filter, bson.E{Key: "main_category_id", Value: main})
	}

	if sub > 0 {
		filter = append(filter, bson.E{Key: "sub_category_id", Value: sub})
	}

	switch q.QualityFilter {
	case search.QualityNoRemakes:
		filter = append(filter, bson.E{Key: "remake", Value: false})
	case search.QualityTrusted:
		filter = append(filter, bson.E{Key: "trusted", Value: true})
	}

	if q.ScopedUserID != nil {
		filter = append(filter, bson.E{Key: "uploader_id", Value: *q.ScopedUserID})
	}

	v := search.VisibilityFor(q)
	if v.All {
		return filter
	}

	filter = append(filter, bson.E{Key: "deleted", Value: false})

	switch {
	case v.PublicOnly:
		filter = append(filter, bson.E{Key: "hidden", Value: false}, bson.E{Key: "anonymous", Value: false})
	case v.HiddenOwner != 0:
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.M{"hidden": false},
			bson.M{"uploader_id": v.HiddenOwner},
		}})
	case v.ExcludeHidden:
		filter = append(filter, bson.E{Key: "hidden", Value: false})
	}

	return filter
}

func mongoSort(q search.Query) bson.D {
	dir := -1
	if q.SortOrder == search.Ascending {
		dir = 1
	}

	field := sortField(q.SortKey)
	if field == "id" {
		return bson.D{{Key: "_id", Value: dir}}
	}

	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}
