package repository

import (
	"github.com/siteassist/insight/internal/license/domain"
	"github.com/siteassist/insight/pkg/repository"
	"gorm.io/gorm"
)

func Provide(db *gorm.DB) repository.Repository[domain.License] {
	return repository.ProvideStore[domain.License](db)
}
