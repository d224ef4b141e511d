package testdb

import (
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// dryRunDSN is parsed but never dialled.
const dryRunDSN = "host=localhost user=shopbot dbname=shopbot sslmode=disable"

// Statements collects the SQL rendered by a dry-run session.
type Statements struct {
	mu  sync.Mutex
	sql []string
}

func (s *Statements) add(db *gorm.DB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sql = append(s.sql, db.Statement.SQL.String())
}

func (s *Statements) All() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sql...)
}

func (s *Statements) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sql) == 0 {
		return ""
	}
	return s.sql[len(s.sql)-1]
}

// DryRunPostgres returns a session that renders SQL with the postgres
// dialect without connecting, and records every query and update it builds.
// SQLite drops row-locking clauses, so lock assertions belong here.
func DryRunPostgres() (*gorm.DB, *Statements, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: dryRunDSN}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, nil, err
	}

	stmts := &Statements{}
	if err := db.Callback().Query().After("gorm:query").Register("testdb:record_query", stmts.add); err != nil {
		return nil, nil, err
	}
	if err := db.Callback().Update().After("gorm:update").Register("testdb:record_update", stmts.add); err != nil {
		return nil, nil, err
	}
	return db, stmts, nil
}
