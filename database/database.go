package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"bookstore-identity/config"
	"bookstore-identity/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB() *gorm.DB {
	databaseSignal := config.AppConfig.DatabaseURL

	// GORM logger configuration
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level (Silent, Error, Warn, Info)
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			ParameterizedQueries:      true,        // Don't include params in the SQL log
			Colorful:                  true,        // Enable color
		},
	)

	db, err := gorm.Open(mysql.Open(databaseSignal), &gorm.Config{
		Logger: newLogger,
		// Surface unique-constraint violations as gorm.ErrDuplicatedKey so
		// the service layer can map them to domain errors.
		TranslateError: true,
	})
	if err != nil {
		panic(fmt.Errorf("failed to connect database: %w", err))
	}

	if err := db.AutoMigrate(&models.User{}, &models.Role{}); err != nil {
		panic(fmt.Errorf("failed to migrate database: %w", err))
	}

	DB = db

	// Seed initial roles and the admin account if they don't exist
	SeedInitialData(DB)

	return db
}

// SeedInitialData seeds the database with the default roles and an initial
// administrator account.
func SeedInitialData(DB *gorm.DB) {
	// --- Roles ---
	for _, name := range []string{models.RoleUser, models.RoleAdmin} {
		var existingRole models.Role
		err := DB.Where("name = ?", name).First(&existingRole).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := DB.Create(&models.Role{Name: name}).Error; err != nil {
				log.Printf("Failed to seed role %s: %v\n", name, err)
			} else {
				log.Printf("Seeded role: %s\n", name)
			}
		} else if err != nil {
			log.Printf("Error checking for role %s: %v\n", name, err)
		}
	}

	// Create an initial admin user if none exists
	var adminUser models.User
	if err := DB.Where("username = ?", "admin").First(&adminUser).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(config.AppConfig.InitialPassword), bcrypt.DefaultCost)
		adminUser = models.User{
			Username:    "admin",
			Password:    string(hashedPassword),
			Email:       "admin@example.com",
			FirstName:   "System",
			LastName:    "Administrator",
			PhoneNumber: "0900000000",
			Enabled:     true,
		}
		if err := DB.Create(&adminUser).Error; err != nil {
			log.Printf("Failed to create initial admin user: %v\n", err)
			return
		}
		var adminRole models.Role
		if err := DB.Where("name = ?", models.RoleAdmin).First(&adminRole).Error; err == nil {
			if err := DB.Model(&adminUser).Association("Roles").Append(&adminRole); err != nil {
				log.Printf("Failed to assign admin role: %v\n", err)
			} else {
				log.Println("Created initial admin user and assigned admin role.")
			}
		} else {
			log.Println("Created initial admin user, but failed to find admin role to assign.")
		}
	}
}
