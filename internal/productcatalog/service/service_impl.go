package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/siteassist/insight/internal/clock"
	licensedomain "github.com/siteassist/insight/internal/license/domain"
	"github.com/siteassist/insight/internal/productcatalog/domain"
	"github.com/siteassist/insight/internal/tenancy"
	"github.com/siteassist/insight/pkg/db"
	"github.com/siteassist/insight/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dataRowLimit = 100

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	GenID    *snowflake.Node
	Repo     repository.Repository[domain.CustomProduct]
	Licenses licensedomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	genID    *snowflake.Node
	repo     repository.Repository[domain.CustomProduct]
	licenses licensedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("productcatalog.service"),
		clock:    p.Clock,
		genID:    p.GenID,
		repo:     p.Repo,
		licenses: p.Licenses,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) error {
	productType := strings.TrimSpace(req.ProductType)
	if !domain.ValidIdentifier(strings.ReplaceAll(productType, "-", "_")) {
		return domain.ErrInvalidProduct
	}
	tableName := strings.TrimSpace(req.TableName)
	if !domain.ValidIdentifier(tableName) {
		return domain.ErrInvalidTableName
	}

	entry := domain.CustomProduct{
		ID:          s.genID.Generate(),
		ProductType: productType,
		DisplayName: productType,
		DataTable:   tableName,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrInvalidProduct
		}
		return err
	}

	_, err := s.licenses.Create(ctx, licensedomain.CreateRequest{
		LicenseKey:  req.LicenseKey,
		Email:       req.CustomerEmail,
		ProductType: productType,
	})
	return err
}

func (s *Service) Data(ctx context.Context, p tenancy.Principal, productType string) (*domain.DataResponse, error) {
	if !p.Valid() {
		return nil, tenancy.ErrNotAuthenticated
	}

	entry, err := s.repo.FindOne(ctx, &domain.CustomProduct{ProductType: productType})
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrUnknownProduct
	}
	if !domain.ValidIdentifier(entry.DataTable) {
		return nil, domain.ErrInvalidTableName
	}

	dataQ := s.db.WithContext(ctx).Table(entry.DataTable)
	statsQ := s.db.WithContext(ctx).Table(entry.DataTable)
	if !p.IsMaster {
		dataQ = dataQ.Where("license_key = ?", p.LicenseKey)
		statsQ = statsQ.Where("license_key = ?", p.LicenseKey)
	}

	var rows []map[string]any
	if err := dataQ.Order("created_at DESC").Limit(dataRowLimit).Find(&rows).Error; err != nil {
		return nil, err
	}

	var stats domain.Stats
	if err := statsQ.
		Select("COUNT(*) AS total_entries, COUNT(DISTINCT user_id) AS unique_users, MAX(created_at) AS last_activity").
		Scan(&stats).Error; err != nil {
		return nil, err
	}

	name := entry.DisplayName
	if name == "" {
		name = entry.ProductType
	}
	return &domain.DataResponse{
		ProductName: name,
		Stats:       stats,
		Data:        rows,
	}, nil
}
