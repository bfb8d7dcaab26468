package repositories

import (
	"errors"

	"bookstore-identity/models"

	"gorm.io/gorm"
)

// RoleRepository interface defines Role-related database operations
type RoleRepository interface {
	FindByName(name string) (*models.Role, error)
	Create(role *models.Role) error
	FindOrCreate(name string) (*models.Role, error)
}

// roleRepository implements the RoleRepository interface
type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new RoleRepository instance
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

// FindByName finds Role by its name
func (r *roleRepository) FindByName(name string) (*models.Role, error) {
	var role models.Role
	result := r.db.Where("name = ?", name).First(&role)
	if result.Error != nil {
		return nil, result.Error
	}
	return &role, nil
}

// Create creates a new Role
func (r *roleRepository) Create(role *models.Role) error {
	result := r.db.Create(role)
	return result.Error
}

// FindOrCreate looks a role up by name and creates it when absent.
// The unique constraint on name is the race guard: when a concurrent
// caller wins the insert, the constraint violation is swallowed and the
// winner's row is fetched instead.
func (r *roleRepository) FindOrCreate(name string) (*models.Role, error) {
	role, err := r.FindByName(name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	newRole := models.Role{Name: name}
	if err := r.Create(&newRole); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.FindByName(name)
		}
		return nil, err
	}
	return &newRole, nil
}
