package repository

import (
	"github.com/siteassist/insight/internal/productcatalog/domain"
	"github.com/siteassist/insight/pkg/repository"
	"gorm.io/gorm"
)

func Provide(db *gorm.DB) repository.Repository[domain.CustomProduct] {
	return repository.ProvideStore[domain.CustomProduct](db)
}
