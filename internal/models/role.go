package models

import "time"

// Built-in role labels.
const (
	RoleLecturer      = "Lecturer"
	RoleManager       = "Manager"
	RoleCoordinator   = "Coordinator"
	RoleAdministrator = "Administrator"
)

// BuiltInRoles are ensured to exist at startup.
var BuiltInRoles = []string{RoleLecturer, RoleManager, RoleCoordinator, RoleAdministrator}

// ReviewerRoles may list pending claims and claim history.
var ReviewerRoles = []string{RoleManager, RoleCoordinator}

// Role is an authorization label assigned to users.
type Role struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
