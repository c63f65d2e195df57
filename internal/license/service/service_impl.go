package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/siteassist/insight/internal/license/domain"
	"github.com/siteassist/insight/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  repository.Repository[domain.License]
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[domain.License]
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("license.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.License, error) {
	key := strings.TrimSpace(req.LicenseKey)
	if key == "" {
		return nil, domain.ErrInvalidLicenseKey
	}

	license := &domain.License{
		ID:          s.genID.Generate(),
		LicenseKey:  key,
		Email:       strings.TrimSpace(req.Email),
		ProductType: strings.TrimSpace(req.ProductType),
		Plan:        strings.TrimSpace(req.Plan),
		Domain:      strings.TrimSpace(req.Domain),
		Status:      domain.StatusActive,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, license); err != nil {
		return nil, err
	}
	return license, nil
}

func (s *Service) GetByKey(ctx context.Context, licenseKey string) (*domain.License, error) {
	key := strings.TrimSpace(licenseKey)
	if key == "" {
		return nil, domain.ErrInvalidLicenseKey
	}
	return s.repo.FindOne(ctx, &domain.License{LicenseKey: key})
}

func (s *Service) GetBySiteKey(ctx context.Context, siteKey string) (*domain.License, error) {
	key := strings.TrimSpace(siteKey)
	if key == "" {
		return nil, domain.ErrInvalidLicenseKey
	}
	return s.repo.FindOne(ctx, &domain.License{SiteKey: &key})
}

func (s *Service) MarkUsed(ctx context.Context, licenseKey string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&domain.License{}).
		Where("license_key = ?", licenseKey).
		Update("used_at", at.UTC()).Error
}
