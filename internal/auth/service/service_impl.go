package service

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/siteassist/insight/internal/auth/domain"
	"github.com/siteassist/insight/internal/clock"
	"github.com/siteassist/insight/internal/config"
	eventlogdomain "github.com/siteassist/insight/internal/eventlog/domain"
	licensedomain "github.com/siteassist/insight/internal/license/domain"
	"github.com/siteassist/insight/internal/tenancy"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type claims struct {
	LicenseKey   string `json:"licenseKey"`
	IsMaster     bool   `json:"isMaster"`
	Domain       string `json:"domain"`
	Email        string `json:"email,omitempty"`
	CustomerName string `json:"customerName,omitempty"`
	jwt.RegisteredClaims
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Cfg      config.Config
	Licenses licensedomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	cfg      config.Config
	licenses licensedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("auth.service"),
		clock:    p.Clock,
		cfg:      p.Cfg,
		licenses: p.Licenses,
	}
}

func (s *Service) Validate(ctx context.Context, req domain.ValidateRequest) (*domain.ValidateResponse, error) {
	licenseKey := strings.TrimSpace(req.LicenseKey)
	if licenseKey == "" {
		return nil, domain.ErrInvalidLicenseKey
	}

	if s.cfg.MasterLicenseKey != "" && licenseKey == s.cfg.MasterLicenseKey {
		token, err := s.issueToken(tenancy.Principal{
			LicenseKey: licenseKey,
			IsMaster:   true,
			Domain:     domain.AllDomains,
		})
		if err != nil {
			return nil, err
		}
		return &domain.ValidateResponse{Valid: true, Token: token, IsMaster: true}, nil
	}

	lic, err := s.licenses.GetByKey(ctx, licenseKey)
	if err != nil {
		return nil, err
	}
	if lic == nil || lic.Status != licensedomain.StatusActive {
		return nil, domain.ErrInvalidLicenseKey
	}

	// The claimed domain must have produced at least one event under this
	// license. Matching is case-insensitive.
	var n int64
	err = s.db.WithContext(ctx).
		Model(&eventlogdomain.ConversationLog{}).
		Where("license_key = ? AND LOWER(domain) = LOWER(?)", licenseKey, req.Domain).
		Count(&n).Error
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrDomainNotFound
	}

	token, err := s.issueToken(tenancy.Principal{
		LicenseKey:   licenseKey,
		Domain:       req.Domain,
		Email:        lic.Email,
		CustomerName: lic.CustomerName,
	})
	if err != nil {
		return nil, err
	}
	return &domain.ValidateResponse{Valid: true, Token: token, IsMaster: false}, nil
}

func (s *Service) issueToken(p tenancy.Principal) (string, error) {
	now := s.clock.Now()
	ttl := time.Duration(s.cfg.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		LicenseKey:   p.LicenseKey,
		IsMaster:     p.IsMaster,
		Domain:       p.Domain,
		Email:        p.Email,
		CustomerName: p.CustomerName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(s.cfg.AuthJWTSecret))
}

func (s *Service) ParseToken(tokenString string) (tenancy.Principal, error) {
	if strings.TrimSpace(tokenString) == "" {
		return tenancy.Principal{}, domain.ErrMissingToken
	}

	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return []byte(s.cfg.AuthJWTSecret), nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !token.Valid {
		return tenancy.Principal{}, domain.ErrInvalidToken
	}

	return tenancy.Principal{
		LicenseKey:   c.LicenseKey,
		IsMaster:     c.IsMaster,
		Domain:       c.Domain,
		Email:        c.Email,
		CustomerName: c.CustomerName,
	}, nil
}
