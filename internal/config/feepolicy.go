package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FeePolicy controls how a booking payment is split between the expert and
// the platform. Commission is expressed in basis points of the amount paid.
type FeePolicy struct {
	CommissionBps int64  `mapstructure:"commissionBps"`
	Currency      string `mapstructure:"currency"`
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		CommissionBps: 2000,
		Currency:      "usd",
	}
}

// FeePolicyHolder serves the current policy and hot-reloads it when the
// backing file changes, so commission updates never require a redeploy.
type FeePolicyHolder struct {
	current atomic.Value // holds FeePolicy
}

func NewFeePolicyHolder() (*FeePolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("fees")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/visalane/config")
	v.AddConfigPath("/etc/visalane")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VISALANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultFeePolicy()
		v.SetDefault("fees.commissionBps", defaults.CommissionBps)
		v.SetDefault("fees.currency", defaults.Currency)
	}

	var policy FeePolicy
	if err := v.UnmarshalKey("fees", &policy); err != nil {
		return nil, err
	}
	if err := validateFeePolicy(policy); err != nil {
		return nil, err
	}

	holder := &FeePolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FeePolicy
		if err := v.UnmarshalKey("fees", &updated); err != nil {
			log.Printf("[fee-policy] reload failed: %v", err)
			return
		}
		if err := validateFeePolicy(updated); err != nil {
			log.Printf("[fee-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[fee-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticFeePolicyHolder returns a holder pinned to the given policy. Tests
// use it to avoid touching the filesystem.
func NewStaticFeePolicyHolder(policy FeePolicy) *FeePolicyHolder {
	holder := &FeePolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *FeePolicyHolder) Get() FeePolicy {
	return h.current.Load().(FeePolicy)
}

func validateFeePolicy(policy FeePolicy) error {
	if policy.CommissionBps < 0 || policy.CommissionBps > 10000 {
		return errors.New("fees.commissionBps must be within [0, 10000]")
	}
	if strings.TrimSpace(policy.Currency) == "" {
		return errors.New("fees.currency cannot be empty")
	}
	return nil
}
