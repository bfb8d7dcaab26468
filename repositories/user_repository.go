package repositories

import (
	"bookstore-identity/models"

	"gorm.io/gorm"
)

// UserRepository interface defines User-related database operations.
// Every read preloads the Roles relation explicitly: role names are needed
// for token claims and outward projections, so there is no lazy graph.
type UserRepository interface {
	Create(user *models.User) error
	FindByID(id uint) (*models.User, error)
	FindByUsername(username string) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	ExistsByUsername(username string) (bool, error)
	ExistsByEmail(email string) (bool, error)
	Update(user *models.User) error
	Delete(user *models.User) error
	FindAll(page int, pageSize int) ([]models.User, int64, error)
}

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new User
func (r *userRepository) Create(user *models.User) error {
	result := r.db.Create(user)
	return result.Error
}

// FindByID finds User by ID
func (r *userRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	result := r.db.Preload("Roles").First(&user, id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// FindByUsername finds User by Username
func (r *userRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	result := r.db.Preload("Roles").Where("username = ?", username).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// FindByEmail finds User by Email
func (r *userRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	result := r.db.Preload("Roles").Where("email = ?", email).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// ExistsByUsername reports whether any user holds the given username.
func (r *userRepository) ExistsByUsername(username string) (bool, error) {
	var count int64
	result := r.db.Model(&models.User{}).Where("username = ?", username).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// ExistsByEmail reports whether any user holds the given email.
func (r *userRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	result := r.db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// Update Update User Information
func (r *userRepository) Update(user *models.User) error {
	result := r.db.Save(user)
	return result.Error
}

// Delete hard-deletes the User and its role associations.
func (r *userRepository) Delete(user *models.User) error {
	if err := r.db.Model(user).Association("Roles").Clear(); err != nil {
		return err
	}
	result := r.db.Unscoped().Delete(user)
	return result.Error
}

// FindAll Pagination find all Users
func (r *userRepository) FindAll(page int, pageSize int) ([]models.User, int64, error) {
	offset := (page - 1) * pageSize
	var users []models.User
	var total int64

	if err := r.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	result := r.db.Preload("Roles").Offset(offset).Limit(pageSize).Find(&users)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return users, total, nil
}
