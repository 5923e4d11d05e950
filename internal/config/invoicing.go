package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InvoicingConfig is the tunable invoice policy read from invoicing.yml.
type InvoicingConfig struct {
	Numbering      NumberingConfig `mapstructure:"numbering"`
	NotesMaxLength int             `mapstructure:"notesMaxLength"`
}

type NumberingConfig struct {
	// MaxAttempts bounds how many times a confirmation is retried after
	// losing an invoice number to a concurrent confirmation.
	MaxAttempts int `mapstructure:"maxAttempts"`
}

func DefaultInvoicingConfig() InvoicingConfig {
	return InvoicingConfig{
		Numbering:      NumberingConfig{MaxAttempts: 3},
		NotesMaxLength: 1000,
	}
}

type InvoicingConfigHolder struct {
	current atomic.Value // holds InvoicingConfig
}

func NewInvoicingConfigHolder(cfg Config, log *zap.Logger) (*InvoicingConfigHolder, error) {
	log = log.Named("config.invoicing")
	v := viper.New()

	v.SetConfigName("invoicing")
	v.SetConfigType("yml")
	if dir := strings.TrimSpace(cfg.InvoicingConfigDir); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("/etc/invoiceflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INVOICEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvoicingConfig()
	v.SetDefault("invoicing.numbering.maxAttempts", defaults.Numbering.MaxAttempts)
	v.SetDefault("invoicing.notesMaxLength", defaults.NotesMaxLength)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var current InvoicingConfig
	if err := v.UnmarshalKey("invoicing", &current); err != nil {
		return nil, err
	}
	if err := validateInvoicingConfig(current); err != nil {
		return nil, err
	}

	holder := &InvoicingConfigHolder{}
	holder.current.Store(current)

	if !fileLoaded {
		log.Info("invoicing.yml not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated InvoicingConfig
		if err := v.UnmarshalKey("invoicing", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateInvoicingConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticInvoicingConfigHolder returns a holder that never reloads.
func NewStaticInvoicingConfigHolder(cfg InvoicingConfig) *InvoicingConfigHolder {
	holder := &InvoicingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *InvoicingConfigHolder) Get() InvoicingConfig {
	if h == nil {
		return DefaultInvoicingConfig()
	}
	return h.current.Load().(InvoicingConfig)
}

func validateInvoicingConfig(cfg InvoicingConfig) error {
	if cfg.Numbering.MaxAttempts < 1 {
		return errors.New("invoicing.numbering.maxAttempts must be at least 1")
	}
	if cfg.NotesMaxLength < 1 {
		return errors.New("invoicing.notesMaxLength must be positive")
	}
	return nil
}
