package service

import (
	"context"
	"fmt"

	"github.com/yeisme/torrentvault/pkg/internal/model"
	"github.com/yeisme/torrentvault/pkg/internal/search"
	"github.com/yeisme/torrentvault/pkg/internal/storage/db"
)

// UserService 用户目录.
type UserService struct {
	dbClient *db.Client
}

func NewUserService(dbc *db.Client) *UserService {
	return &UserService{dbClient: dbc}
}

// ByUsername 按用户名精确查找，不存在时返回 (nil, nil).
func (s *UserService) ByUsername(ctx context.Context, name string) (*search.User, error) {
	if name == "" {
		return nil, nil
	}

	var u model.User

	err := s.dbClient.GetDB().WithContext(ctx).Where("username = ?", name).Take(&u).Error
	if notFound(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("query user %q: %w", name, err)
	}

	return toSearchUser(&u), nil
}

func toSearchUser(u *model.User) *search.User {
	return &search.User{
		ID:        u.ID,
		Name:      u.Username,
		Moderator: u.IsModerator(),
		Trusted:   u.IsTrusted(),
	}
}
