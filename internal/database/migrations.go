package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/endorhq/endor/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Tool{},
		&models.Project{},
		&models.Invite{},
		&models.Credential{},
		&models.SystemSetting{},
		&models.RateCounter{},
	)
}

// DefaultTools is the catalogue seeded into a fresh database.
func DefaultTools() []models.Tool {
	return []models.Tool{
		{ID: "travis", Name: "Travis CI", Category: models.ToolCategoryCI, Website: "https://travis-ci.com"},
		{ID: "github-actions", Name: "GitHub Actions", Category: models.ToolCategoryCI, Website: "https://github.com/features/actions"},
		{ID: "heroku", Name: "Heroku", Category: models.ToolCategoryDeployment, Website: "https://www.heroku.com"},
		{ID: "docker", Name: "Docker", Category: models.ToolCategoryContainer, Website: "https://www.docker.com"},
		{ID: "express", Name: "Express", Category: models.ToolCategoryWebFramework, Website: "https://expressjs.com"},
		{ID: "gin", Name: "Gin", Category: models.ToolCategoryWebFramework, Website: "https://gin-gonic.com"},
		{ID: "sequelize", Name: "Sequelize", Category: models.ToolCategoryORM, Website: "https://sequelize.org"},
		{ID: "gorm", Name: "GORM", Category: models.ToolCategoryORM, Website: "https://gorm.io"},
		{ID: "mocha", Name: "Mocha", Category: models.ToolCategoryTest, Website: "https://mochajs.org"},
		{ID: "jest", Name: "Jest", Category: models.ToolCategoryTest, Website: "https://jestjs.io"},
		{ID: "github", Name: "GitHub", Category: models.ToolCategorySourceControl, Website: "https://github.com"},
	}
}

// SeedData populates the tool catalogue. Existing rows are left untouched.
func SeedData(db *gorm.DB) error {
	tools := DefaultTools()
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tools).Error
}
