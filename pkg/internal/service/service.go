// Package service 基于 gorm 实现检索引擎所需的目录、关系库后端与分类目录，不处理 HTTP 细节.
package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/yeisme/torrentvault/pkg/internal/storage/db"
)

// likeEscaper 转义 LIKE 通配符，配合 ESCAPE '!' 使用.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Services 聚合全部服务.
type Services struct {
	Users      *UserService
	Torrents   *TorrentService
	Categories *CategoryService
}

// New 使用给定数据库客户端创建全部服务.
func New(dbc *db.Client) *Services {
	return &Services{
		Users:      NewUserService(dbc),
		Torrents:   NewTorrentService(dbc),
		Categories: NewCategoryService(dbc),
	}
}

// notFound 将 gorm 的记录不存在视为正常的空结果.
func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
