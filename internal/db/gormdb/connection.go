// Package gormdb opens the Postgres connection behind the GORM message
// repository.
package gormdb

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Kirky-X/xlink/internal/db"
)

// verify it satisfies db.DB
var _ db.DB = (*GormDB)(nil)

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

type GormDB struct {
	conn *gorm.DB
}

// New opens dsn and sizes the pool. GORM output goes to log.
func New(dsn string, log zerolog.Logger) (*GormDB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 NewLogger(log, 200*time.Millisecond),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	return &GormDB{conn: conn}, nil
}

func (g *GormDB) Conn() any {
	return g.conn
}
