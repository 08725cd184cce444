package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CommissionConfig holds the rates used before an admin saves settings, and
// the limits applied to referral report imports.
type CommissionConfig struct {
	StandardCents int64                `mapstructure:"standardCents"`
	SelfCents     int64                `mapstructure:"selfCents"`
	ReferralCents int64                `mapstructure:"referralCents"`
	Import        ReferralImportConfig `mapstructure:"import"`
}

type ReferralImportConfig struct {
	MaxRows int `mapstructure:"maxRows"`
}

func DefaultCommissionConfig() CommissionConfig {
	return CommissionConfig{
		StandardCents: 200,
		SelfCents:     300,
		ReferralCents: 200,
		Import: ReferralImportConfig{
			MaxRows: 5000,
		},
	}
}

type CommissionConfigHolder struct {
	current atomic.Value // holds CommissionConfig
}

// NewCommissionConfigHolder reads commission.yml from the standard locations
// plus any extra paths, and reloads it whenever the file changes.
func NewCommissionConfigHolder(extraPaths ...string) (*CommissionConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("commission")
	v.SetConfigType("yml")
	for _, path := range extraPaths {
		if strings.TrimSpace(path) != "" {
			v.AddConfigPath(path)
		}
	}
	v.AddConfigPath("/var/lib/salesdesk/config") // Volume-mounted config
	v.AddConfigPath("/etc/salesdesk")            // System config
	v.AddConfigPath(".")                         // Current directory (dev mode)

	v.SetEnvPrefix("SALESDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCommissionConfig()
	v.SetDefault("commission.standardCents", defaults.StandardCents)
	v.SetDefault("commission.selfCents", defaults.SelfCents)
	v.SetDefault("commission.referralCents", defaults.ReferralCents)
	v.SetDefault("commission.import.maxRows", defaults.Import.MaxRows)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeCommissionConfig(v)
	if err != nil {
		return nil, err
	}
	if err := validateCommissionConfig(cfg); err != nil {
		return nil, err
	}

	holder := &CommissionConfigHolder{}
	holder.current.Store(cfg)

	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeCommissionConfig(v)
		if err != nil {
			log.Printf("[commission-config] reload failed: %v", err)
			return
		}
		if err := validateCommissionConfig(updated); err != nil {
			log.Printf("[commission-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[commission-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticCommissionConfigHolder wraps a fixed config. Tests use it.
func NewStaticCommissionConfigHolder(cfg CommissionConfig) *CommissionConfigHolder {
	holder := &CommissionConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *CommissionConfigHolder) Get() CommissionConfig {
	return h.current.Load().(CommissionConfig)
}

// decodeCommissionConfig goes through Unmarshal rather than UnmarshalKey so
// nested defaults are merged with a partial file.
func decodeCommissionConfig(v *viper.Viper) (CommissionConfig, error) {
	var file struct {
		Commission CommissionConfig `mapstructure:"commission"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return CommissionConfig{}, err
	}
	return file.Commission, nil
}

func validateCommissionConfig(cfg CommissionConfig) error {
	if cfg.StandardCents < 0 || cfg.SelfCents < 0 || cfg.ReferralCents < 0 {
		return errors.New("commission rates cannot be negative")
	}
	if cfg.Import.MaxRows <= 0 {
		return errors.New("commission.import.maxRows must be positive")
	}
	return nil
}
