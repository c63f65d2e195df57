package repository

import (
	"github.com/siteassist/insight/internal/eventlog/domain"
	"github.com/siteassist/insight/pkg/repository"
	"gorm.io/gorm"
)

func Provide(db *gorm.DB) repository.Repository[domain.ConversationLog] {
	return repository.ProvideStore[domain.ConversationLog](db)
}
