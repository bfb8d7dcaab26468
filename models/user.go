package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Username    string `gorm:"unique;not null;size:50"`
	Password    string `gorm:"not null" json:"-"` // Don't expose password hash
	Email       string `gorm:"unique;not null;size:100"`
	FirstName   string `gorm:"not null;size:50"`
	LastName    string `gorm:"not null;size:50"`
	PhoneNumber string `gorm:"not null;size:15"`
	Enabled     bool   `gorm:"not null;default:true"`
	Roles       []Role `gorm:"many2many:user_roles;"` // Many-to-Many relationship with Role
}

// RoleNames returns the names of the user's roles. Rows written by the old
// backend may still carry the "ROLE_" authority prefix; it is stripped here
// so tokens and responses only ever see the plain name.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.PlainName())
	}
	return names
}
