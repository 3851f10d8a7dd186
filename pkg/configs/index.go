package configs

import "github.com/spf13/viper"

// IndexType 全文索引后端类型.
type IndexType string

const (
	IndexSQLite IndexType = "sqlite"
	IndexMongo  IndexType = "mongo"
)

// IndexConfig 全文索引配置.
type IndexConfig struct {
	Type   IndexType         `mapstructure:"type"   rule:"index_type"`
	SQLite SQLiteIndexConfig `mapstructure:"sqlite"`
	Mongo  MongoIndexConfig  `mapstructure:"mongo"`
}

// SQLiteIndexConfig 基于 FTS5 的嵌入式索引.
type SQLiteIndexConfig struct {
	Path string `mapstructure:"path" rule:"required"`
}

// MongoIndexConfig 基于 $text 的 MongoDB 索引.
type MongoIndexConfig struct {
	URI            string `mapstructure:"uri"`
	Database       string `mapstructure:"database"`
	Collection     string `mapstructure:"collection"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" rule:"min=1"`
}

func (c *IndexConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("index.type", IndexSQLite)
	v.SetDefault("index.sqlite.path", "data/index.db")
	v.SetDefault("index.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("index.mongo.database", AppName)
	v.SetDefault("index.mongo.collection", "listings")
	v.SetDefault("index.mongo.timeout_seconds", 10)
}
