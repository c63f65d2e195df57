package config

import (
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingConfig maps plan codes to their monthly price. Revenue aggregation
// falls back to BasePrice for plans that are not listed.
type PricingConfig struct {
	BasePrice  float64            `mapstructure:"basePrice"`
	PlanPrices map[string]float64 `mapstructure:"planPrices"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		BasePrice: 29,
		PlanPrices: map[string]float64{
			"starter":    19,
			"basic":      29,
			"pro":        99,
			"enterprise": 299,
		},
	}
}

// PricingHolder serves the current pricing table and hot-reloads it when the
// config file changes on disk.
type PricingHolder struct {
	current atomic.Value // holds PricingConfig
}

func NewPricingHolder() (*PricingHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/insight/config") // Volume-mounted config
	v.AddConfigPath("/etc/insight")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("INSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPricingConfig()
		v.SetDefault("pricing.basePrice", defaults.BasePrice)
		v.SetDefault("pricing.planPrices", defaults.PlanPrices)
	}

	holder := &PricingHolder{}
	if err := holder.reload(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			log.Printf("pricing config reload failed: %v", err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

func (h *PricingHolder) reload(v *viper.Viper) error {
	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return err
	}
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = DefaultPricingConfig().BasePrice
	}
	if len(cfg.PlanPrices) == 0 {
		cfg.PlanPrices = DefaultPricingConfig().PlanPrices
	}
	h.current.Store(cfg)
	return nil
}

// Current returns the active pricing snapshot.
func (h *PricingHolder) Current() PricingConfig {
	if cfg, ok := h.current.Load().(PricingConfig); ok {
		return cfg
	}
	return DefaultPricingConfig()
}

// PriceFor resolves the monthly price for a plan code, case-insensitively.
func (h *PricingHolder) PriceFor(plan string) float64 {
	cfg := h.Current()
	if price, ok := cfg.PlanPrices[strings.ToLower(strings.TrimSpace(plan))]; ok {
		return price
	}
	return cfg.BasePrice
}
