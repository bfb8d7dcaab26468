package models

import (
	"strings"

	"gorm.io/gorm"
)

// Default role names. Registration always assigns RoleUser; RoleAdmin
// guards the administrative routes.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type Role struct {
	gorm.Model
	Name  string `gorm:"unique;not null;size:50"`
	Users []User `gorm:"many2many:user_roles;"` // Many-to-Many relationship back to User
}

// PlainName returns the role name without the legacy "ROLE_" prefix.
func (r *Role) PlainName() string {
	return strings.TrimPrefix(r.Name, "ROLE_")
}
