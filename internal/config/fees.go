package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FeeSchedule describes the platform fee applied to each payment.
// The fee is a fixed amount in minor units per transaction; it is not a
// percentage of the payment amount.
type FeeSchedule struct {
	TransactionFee int64  `mapstructure:"transactionFee"`
	Currency       string `mapstructure:"currency"`
}

func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		TransactionFee: 500,
		Currency:       "RWF",
	}
}

// FeeScheduleHolder exposes the currently active fee schedule and hot-reloads
// it when the mounted config file changes.
type FeeScheduleHolder struct {
	current atomic.Value // holds FeeSchedule
}

func NewFeeScheduleHolder() (*FeeScheduleHolder, error) {
	v := viper.New()

	v.SetConfigName("fees")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/copay/config")
	v.AddConfigPath("/etc/copay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultFeeSchedule()
		v.SetDefault("fees.transactionFee", defaults.TransactionFee)
		v.SetDefault("fees.currency", defaults.Currency)
	}

	var schedule FeeSchedule
	if err := v.UnmarshalKey("fees", &schedule); err != nil {
		return nil, err
	}
	if err := validateFeeSchedule(schedule); err != nil {
		return nil, err
	}

	holder := &FeeScheduleHolder{}
	holder.current.Store(schedule)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FeeSchedule
		if err := v.UnmarshalKey("fees", &updated); err != nil {
			log.Printf("[fee-config] reload failed: %v", err)
			return
		}
		if err := validateFeeSchedule(updated); err != nil {
			log.Printf("[fee-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[fee-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticFeeScheduleHolder pins a schedule without file watching.
func NewStaticFeeScheduleHolder(schedule FeeSchedule) *FeeScheduleHolder {
	holder := &FeeScheduleHolder{}
	holder.current.Store(schedule)
	return holder
}

func (h *FeeScheduleHolder) Get() FeeSchedule {
	return h.current.Load().(FeeSchedule)
}

func validateFeeSchedule(schedule FeeSchedule) error {
	if schedule.TransactionFee < 0 {
		return errors.New("fees.transactionFee cannot be negative")
	}
	if strings.TrimSpace(schedule.Currency) == "" {
		return errors.New("fees.currency cannot be empty")
	}
	return nil
}
