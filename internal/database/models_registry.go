package database

import "rostrum/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters for AutoMigrate: referenced tables come first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.DebateCategory{},
		&models.Debate{},
		&models.Response{},
		&models.Vote{},
	}
}
