// Package model 定义关系库中的表结构.
package model

import (
	"time"

	"gorm.io/gorm"
)

// Torrent 一条种子发布记录.
type Torrent struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// InfoHash 小写十六进制，唯一
	InfoHash    string `gorm:"size:40;uniqueIndex"   json:"info_hash"`
	DisplayName string `gorm:"size:1024;index"       json:"display_name"`
	Filesize    int64  `gorm:"index"                 json:"filesize"`
	Seeders     int    `gorm:"index;not null;default:0" json:"seeders"`
	Leechers    int    `gorm:"index;not null;default:0" json:"leechers"`
	Downloads   int    `gorm:"index;not null;default:0" json:"downloads"`
	// CommentCount 冗余的评论数，用于排序
	CommentCount int `gorm:"index;not null;default:0" json:"comment_count"`

	MainCategoryID int `gorm:"index:idx_torrent_category" json:"main_category_id"`
	SubCategoryID  int `gorm:"index:idx_torrent_category" json:"sub_category_id"`

	UploaderID *uint `gorm:"index"                 json:"uploader_id,omitempty"`
	Uploader   *User `gorm:"foreignKey:UploaderID" json:"-"`

	Hidden    bool `gorm:"index;not null;default:false" json:"hidden"`
	Deleted   bool `gorm:"index;not null;default:false" json:"deleted"`
	Anonymous bool `gorm:"not null;default:false"       json:"anonymous"`
	Trusted   bool `gorm:"index;not null;default:false" json:"trusted"`
	Remake    bool `gorm:"index;not null;default:false" json:"remake"`

	CreatedAt time.Time `gorm:"index"                  json:"created_at"`
	UpdatedAt time.Time `gorm:"index:idx_torrent_sync" json:"updated_at"`
}

// User 站点用户.
type User struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	Username  string    `gorm:"size:32;uniqueIndex"  json:"username"`
	Level     int       `gorm:"not null;default:0"   json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

// 用户等级.
const (
	UserLevelRegular   = 0
	UserLevelTrusted   = 1
	UserLevelModerator = 2
	UserLevelSuperuser = 3
)

// IsModerator 版主及以上.
func (u *User) IsModerator() bool {
	return u.Level >= UserLevelModerator
}

// IsTrusted 可信用户及以上.
func (u *User) IsTrusted() bool {
	return u.Level >= UserLevelTrusted
}

// MainCategory 主分类，ID 由站点约定而非自增.
type MainCategory struct {
	ID            int           `gorm:"primaryKey;autoIncrement:false"`
	Name          string        `gorm:"size:64;not null"`
	SubCategories []SubCategory `gorm:"foreignKey:MainCategoryID"`
}

// SubCategory 子分类，以 (MainCategoryID, ID) 为复合主键.
type SubCategory struct {
	MainCategoryID int    `gorm:"primaryKey;autoIncrement:false"`
	ID             int    `gorm:"primaryKey;autoIncrement:false"`
	Name           string `gorm:"size:64;not null"`
}

// AutoMigrate 创建或更新全部表.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &MainCategory{}, &SubCategory{}, &Torrent{})
}
