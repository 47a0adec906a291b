// internal/service/order/infrastructure/mysql.go
package infrastructure

import (
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB 初始化 MySQL 连接池。
func NewDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		// 打开方言的唯一索引冲突翻译，Create 时能拿到 gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect mysql")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to access underlying sql.DB")
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
