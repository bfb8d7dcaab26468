package services

import (
	"errors"
	"fmt"
	"time"

	"bookstore-identity/auth"
	"bookstore-identity/models"
	"bookstore-identity/repositories"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Domain errors surfaced to the transport layer. Controllers map these to
// HTTP statuses with errors.Is.
var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrEmailInUse        = errors.New("email address is already in use by another account")
	ErrUserNotFound      = errors.New("user not found")
	// ErrInvalidCredentials deliberately covers both "no such login" and
	// "wrong password" so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// The UserService interface defines the methods that user services need to implement
type UserService interface {
	Register(input *RegisterInput) (*models.User, error)
	Authenticate(login string, password string) (string, []string, error)
	FindByLogin(login string) (*models.User, error)
	GetMyProfile(login string) (*UserDTO, error)
	UpdateOwnProfile(login string, input *UpdateProfileInput) (*UserDTO, error)
	CreateUser(input *AdminCreateUserInput) (*UserDTO, error)
	GetUserByID(id uint) (*UserDTO, error)
	ListUsers(page int, pageSize int) ([]UserDTO, int64, error)
	DeleteUser(id uint) error
}

// --- Structs for Input/Output ---

type RegisterInput struct {
	Username    string `json:"username" description:"3-50 chars, letters, digits, underscore or dash"`
	Password    string `json:"password" description:"6-100 chars"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number" description:"+84 or 0 followed by 9-12 digits"`
}

// UpdateProfileInput carries the only fields a user may change on their own
// profile. Username, password, roles and the enabled flag stay immutable
// through this path.
type UpdateProfileInput struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

// AdminCreateUserInput is the administrative creation payload. No password
// field: new accounts get the configured placeholder password and are
// expected to reset it out of band.
type AdminCreateUserInput struct {
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	PhoneNumber string   `json:"phone_number"`
	Enabled     bool     `json:"enabled"`
	Roles       []string `json:"roles" description:"role names; defaults to USER when empty"`
}

// UserDTO is the password-free outward projection of a User.
type UserDTO struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	PhoneNumber string    `json:"phone_number"`
	Enabled     bool      `json:"enabled"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"created_at"`
}

// The userService structure is the implementation of the UserService interface
type userService struct {
	userRepo repositories.UserRepository
	roleRepo repositories.RoleRepository
	// initialPassword is the placeholder assigned to admin-created accounts.
	initialPassword string
}

var _ UserService = (*userService)(nil)

// NewUserService creates a new UserService instance
func NewUserService(userRepo repositories.UserRepository, roleRepo repositories.RoleRepository, initialPassword string) UserService {
	return &userService{
		userRepo:        userRepo,
		roleRepo:        roleRepo,
		initialPassword: initialPassword,
	}
}

// Register handles self-service registration: uniqueness checks, default
// USER role, bcrypt hash, enabled=true.
func (s *userService) Register(input *RegisterInput) (*models.User, error) {
	if err := s.checkUniqueness(input.Username, input.Email); err != nil {
		return nil, err
	}

	userRole, err := s.roleRepo.FindOrCreate(models.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve default role: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	user := models.User{
		Username:    input.Username,
		Password:    string(hashedPassword),
		Email:       input.Email,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		PhoneNumber: input.PhoneNumber,
		Enabled:     true,
		Roles:       []models.Role{*userRole},
	}

	if err := s.userRepo.Create(&user); err != nil {
		// The existence checks above are not a race guard; the unique
		// constraint is. A concurrent registration can still win between
		// check and insert, so map the constraint violation back to the
		// matching domain error.
		return nil, s.mapCreateConflict(err, input.Username)
	}

	return &user, nil
}

// FindByLogin resolves a login string to a user. The value is tried as an
// email first and as a username second; email takes precedence when a
// username happens to collide with someone else's email.
func (s *userService) FindByLogin(login string) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(login)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error resolving login: %w", err)
	}

	user, err = s.userRepo.FindByUsername(login)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error resolving login: %w", err)
	}
	return nil, ErrUserNotFound
}

// Authenticate verifies a login credential and issues a signed token
// carrying the user's role names.
func (s *userService) Authenticate(login string, password string) (string, []string, error) {
	user, err := s.FindByLogin(login)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	roles := user.RoleNames()
	token, err := auth.GenerateToken(user, roles)
	if err != nil {
		return "", nil, fmt.Errorf("could not generate token: %w", err)
	}
	return token, roles, nil
}

// GetMyProfile returns the caller's own profile projection.
func (s *userService) GetMyProfile(login string) (*UserDTO, error) {
	user, err := s.FindByLogin(login)
	if err != nil {
		return nil, err
	}
	dto := mapUserToDTO(user)
	return &dto, nil
}

// UpdateOwnProfile lets an authenticated user change email, names and phone
// number on their own record.
func (s *userService) UpdateOwnProfile(login string, input *UpdateProfileInput) (*UserDTO, error) {
	user, err := s.FindByLogin(login)
	if err != nil {
		return nil, err
	}

	if input.Email != user.Email {
		taken, err := s.userRepo.ExistsByEmail(input.Email)
		if err != nil {
			return nil, fmt.Errorf("database error checking email uniqueness: %w", err)
		}
		if taken {
			return nil, ErrEmailInUse
		}
		user.Email = input.Email
	}

	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.PhoneNumber = input.PhoneNumber

	if err := s.userRepo.Update(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("failed to save profile updates: %w", err)
	}

	dto := mapUserToDTO(user)
	return &dto, nil
}

// CreateUser handles administrative account creation. The account receives
// the configured placeholder password and the given roles (default USER).
func (s *userService) CreateUser(input *AdminCreateUserInput) (*UserDTO, error) {
	if err := s.checkUniqueness(input.Username, input.Email); err != nil {
		return nil, err
	}

	roleNames := input.Roles
	if len(roleNames) == 0 {
		roleNames = []string{models.RoleUser}
	}
	roles, err := s.getOrCreateRoles(roleNames)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(s.initialPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	user := models.User{
		Username:    input.Username,
		Password:    string(hashedPassword),
		Email:       input.Email,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		PhoneNumber: input.PhoneNumber,
		Enabled:     input.Enabled,
		Roles:       roles,
	}

	if err := s.userRepo.Create(&user); err != nil {
		return nil, s.mapCreateConflict(err, input.Username)
	}

	dto := mapUserToDTO(&user)
	return &dto, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *userService) GetUserByID(id uint) (*UserDTO, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error retrieving user: %w", err)
	}
	dto := mapUserToDTO(user)
	return &dto, nil
}

// ListUsers retrieves a paginated list of users.
func (s *userService) ListUsers(page int, pageSize int) ([]UserDTO, int64, error) {
	users, total, err := s.userRepo.FindAll(page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("database error retrieving users: %w", err)
	}

	dtos := make([]UserDTO, len(users))
	for i := range users {
		dtos[i] = mapUserToDTO(&users[i])
	}
	return dtos, total, nil
}

// DeleteUser hard-deletes a user by ID. Deleting an absent ID is an error,
// not a no-op.
func (s *userService) DeleteUser(id uint) error {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to obtain user information: %w", err)
	}

	if err := s.userRepo.Delete(user); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// checkUniqueness runs the username-then-email existence checks shared by
// registration and admin creation. The ordering only fixes which error wins
// when both collide.
func (s *userService) checkUniqueness(username, email string) error {
	exists, err := s.userRepo.ExistsByUsername(username)
	if err != nil {
		return fmt.Errorf("database error checking existing user: %w", err)
	}
	if exists {
		return ErrDuplicateUsername
	}

	exists, err = s.userRepo.ExistsByEmail(email)
	if err != nil {
		return fmt.Errorf("database error checking existing user: %w", err)
	}
	if exists {
		return ErrDuplicateEmail
	}
	return nil
}

// mapCreateConflict translates a unique-constraint violation raised by the
// insert itself into the matching domain error.
func (s *userService) mapCreateConflict(err error, username string) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("failed to create user: %w", err)
	}
	exists, checkErr := s.userRepo.ExistsByUsername(username)
	if checkErr == nil && exists {
		return ErrDuplicateUsername
	}
	return ErrDuplicateEmail
}

// getOrCreateRoles resolves a set of role names to Role rows, creating the
// missing ones.
func (s *userService) getOrCreateRoles(names []string) ([]models.Role, error) {
	seen := make(map[string]struct{}, len(names))
	roles := make([]models.Role, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		role, err := s.roleRepo.FindOrCreate(name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve role %q: %w", name, err)
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

func mapUserToDTO(user *models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		PhoneNumber: user.PhoneNumber,
		Enabled:     user.Enabled,
		Roles:       user.RoleNames(),
		CreatedAt:   user.CreatedAt,
	}
}
