package config

import (
	"fmt"
	"strings"

	"harberger/core/types"
	"harberger/native/pricing"
)

// Validate checks the engine section against the construction-time rules.
// Failures here are fatal: no engine instance may be built from an invalid
// configuration. `now` is the wall clock used for the in-the-past check on
// the confirmation window.
func Validate(cfg *Config, now int64) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	eng := cfg.Engine
	if err := pricing.ValidateFeeBps(eng.FeeBps); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	for field, value := range map[string]string{
		"Authority":        eng.Authority,
		"Collector":        eng.Collector,
		"AdapterAddress":   eng.AdapterAddress,
		"SettlementEngine": eng.SettlementEngine,
	} {
		addr, err := types.ParseAddress(value)
		if err != nil {
			return fmt.Errorf("engine: %s: %w", field, err)
		}
		if addr.IsZero() {
			return fmt.Errorf("engine: %s must not be the zero address", field)
		}
	}
	switch strings.TrimSpace(eng.Variant) {
	case VariantStatic:
		return nil
	case VariantEphemeral:
		s := eng.Schedule
		if _, err := pricing.NewSchedule(s.ConfirmationOpen, s.ConfirmationDeadline, s.AuctionDeadline, s.FinalDeadline); err != nil {
			return err
		}
		if s.ConfirmationOpen < now {
			return fmt.Errorf("engine: confirmation open %d is in the past", s.ConfirmationOpen)
		}
		return nil
	default:
		return fmt.Errorf("engine: unknown curve variant %q", eng.Variant)
	}
}
