// Package repository provides the data access layer for debates, responses and votes.
package repository

import (
	"errors"
	"strings"

	"rostrum/internal/database"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the vote path reacts to.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// readDB returns the replica for reads that may lag the primary. Only
// reference listings use it: anything carrying tallies, leaders or rows a
// caller may have just written reads r.db.
func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// IsUniqueViolation reports whether err is a unique-key collision.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsRetryableConflict reports whether err is a serialization failure or
// deadlock that a fresh transaction may not hit.
func IsRetryableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}
