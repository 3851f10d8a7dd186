package service

import (
	"context"
	"fmt"

	"github.com/yeisme/torrentvault/pkg/internal/model"
	"github.com/yeisme/torrentvault/pkg/internal/search"
	"github.com/yeisme/torrentvault/pkg/internal/storage/db"
)

// CategoryService 分类目录.
type CategoryService struct {
	dbClient *db.Client
}

func NewCategoryService(dbc *db.Client) *CategoryService {
	return &CategoryService{dbClient: dbc}
}

// ListAll 返回 {"1_0": ["Anime"], "1_2": ["Anime", "English-translated"]} 形式的映射.
func (s *CategoryService) ListAll(ctx context.Context) (map[string][]string, error) {
	var mains []model.MainCategory
	if err := s.dbClient.GetDB().WithContext(ctx).Preload("SubCategories").Order("id").Find(&mains).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	out := make(map[string][]string, len(mains)*4)

	for _, m := range mains {
		out[search.CategoryKey(m.ID, 0)] = []string{m.Name}
		for _, sub := range m.SubCategories {
			out[search.CategoryKey(m.ID, sub.ID)] = []string{m.Name, sub.Name}
		}
	}

	return out, nil
}
