package db

import (
	"github.com/learner420/quizify/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus"

	"gorm.io/driver/mysql" // MySQL driver for GORM
	"gorm.io/gorm"         // GORM ORM library
)

// Migrate performs automatic migration for the database schema and
// seeds the default token packages
func Migrate(dsn string) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{}) // Open a connection to the database
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	err = db.AutoMigrate(&domain.User{}, &domain.QuizAttempt{}, &domain.Transaction{}, &domain.TokenPackage{})
	if err != nil {
		logrus.Fatalf("migration failed: %v", err) // Log fatal error if migration fails
	}
	SeedPackages(db)                    // Seed the default token packages
	logrus.Info("Migration completed.") // Log successful migration
}

// SeedPackages inserts the default token packages when absent
func SeedPackages(db *gorm.DB) {
	defaults := []domain.TokenPackage{
		{Name: "basic", Amount: 99, Tokens: 10},     // Entry package
		{Name: "standard", Amount: 199, Tokens: 25}, // Mid package
		{Name: "premium", Amount: 499, Tokens: 75},  // Large package
	}
	for _, pkg := range defaults {
		var existing domain.TokenPackage
		// Keep admin-edited packages untouched
		if err := db.First(&existing, "name = ?", pkg.Name).Error; err != nil {
			if err := db.Create(&pkg).Error; err != nil {
				logrus.Warnf("failed to seed package %s: %v", pkg.Name, err)
			}
		}
	}
}
