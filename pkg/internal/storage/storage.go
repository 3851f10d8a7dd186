// Package storage 聚合关系型数据库与 KV 缓存连接.
//
// Example:
//
//	mgr, err := storage.Init(ctx, configs.GetConfig())
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	dbClient := mgr.GetDBClient()
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/torrentvault/pkg/configs"
	dbc "github.com/yeisme/torrentvault/pkg/internal/storage/db"
	kvc "github.com/yeisme/torrentvault/pkg/internal/storage/kv"
	nlog "github.com/yeisme/torrentvault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB *dbc.Client
	KV *kvc.Client
}

// Init 按配置初始化存储，KV 初始化失败时退回内存实现.
func Init(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	dbi, err := dbc.New(ctx, cfg.DB, cfg.Metrics.Enabled)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	m.DB = dbi

	kvi, err := kvc.NewKVClient(ctx, cfg.KV)
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("type", cfg.KV.Type).Msg("kv unavailable, falling back to memory")

		kvi, err = kvc.NewKVClient(ctx, configs.KVConfig{Type: string(kvc.KVTypeMemory)})
		if err != nil {
			_ = dbi.Close()
			return nil, fmt.Errorf("init kv: %w", err)
		}
	}

	m.KV = kvi

	nlog.Logger().Info().Str("db", cfg.DB.GetDBType()).Str("kv", string(kvi.Type)).Msg("storage manager initialized")

	return m, nil
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// Close 关闭所有连接.
func (m *Manager) Close() error {
	var errs []error

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
