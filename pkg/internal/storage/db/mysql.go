//go:build !no_mysql

package db

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/yeisme/torrentvault/pkg/configs"
)

func init() {
	for _, t := range []configs.DBType{configs.MySQL, configs.MariaDB} {
		RegisterDialectorFactory(t, func(dsn string) gorm.Dialector {
			return mysql.Open(dsn)
		})
	}
}
