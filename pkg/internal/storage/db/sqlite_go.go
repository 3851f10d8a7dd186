//go:build !no_sqlite

package db

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/torrentvault/pkg/configs"
)

// 纯 Go 实现，注册的驱动名为 "sqlite"，与全文索引使用的 "sqlite3" 驱动互不冲突.
func init() {
	RegisterDialectorFactory(configs.SQLite, func(dsn string) gorm.Dialector {
		return sqlite.Open(dsn)
	})
}
