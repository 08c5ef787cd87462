package db

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

// Open connects to Postgres or dies. Migrations are owned by the repositories.
func Open(dsn string) *gorm.DB {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Warn),
	})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	return gdb
}
