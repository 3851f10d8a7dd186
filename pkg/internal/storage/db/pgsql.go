//go:build !no_postgres

package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yeisme/torrentvault/pkg/configs"
)

func init() {
	for _, t := range []configs.DBType{configs.PostgreSQL, configs.Postgres, configs.Pg} {
		RegisterDialectorFactory(t, func(dsn string) gorm.Dialector {
			return postgres.Open(dsn)
		})
	}
}
