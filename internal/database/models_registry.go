package database

import "claimpro/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Role{},
		&models.User{},
		&models.Claim{},
	}
}
