package engine

import (
	"errors"
	"fmt"

	"curve-launchpad/internal/fees"
)

// Config holds every policy constant the engine trades under. All values are
// fixed at initialization and never mutated mid-trade.
type Config struct {
	// Curve shape.
	InitialPrice     uint64 // price at zero supply, curve.PriceScale fixed point
	GrowthConstant   uint64 // exponent at full supply, fixedpoint.One scale
	GraduationSupply uint64 // quantity base units that end curve issuance

	// GraduationThresholdValue is the raised value at which the token
	// graduates to the external pool.
	GraduationThresholdValue uint64

	// Fee rates in basis points out of 10_000.
	PlatformFeeBps uint64
	CreatorFeeBps  uint64

	// Trade value bounds (gross, value base units).
	MinTradeValue uint64
	MaxTradeValue uint64

	// Metadata length bounds, inclusive.
	NameMinLen   int
	NameMaxLen   int
	SymbolMinLen int
	SymbolMaxLen int

	// ProtocolFeeDestination receives the platform fee share.
	ProtocolFeeDestination string
}

// DefaultConfig returns the standard launchpad policy.
func DefaultConfig() Config {
	return Config{
		InitialPrice:             1_000_000,                     // 0.001 value units per quantity unit
		GrowthConstant:           6_000_000_000_000_000_000,     // e^6 boundary multiplier
		GraduationSupply:         800_000_000,
		GraduationThresholdValue: 85_000_000_000,
		PlatformFeeBps:           100, // 1%
		CreatorFeeBps:            25,  // 0.25%
		MinTradeValue:            1_000,
		MaxTradeValue:            50_000_000_000,
		NameMinLen:               2,
		NameMaxLen:               50,
		SymbolMinLen:             2,
		SymbolMaxLen:             10,
		ProtocolFeeDestination:   "protocol-treasury",
	}
}

// Validate rejects configurations the engine cannot trade under.
func (c Config) Validate() error {
	if c.InitialPrice == 0 {
		return errors.New("initial price must be positive")
	}
	if c.GrowthConstant == 0 {
		return errors.New("growth constant must be positive")
	}
	if c.GraduationSupply == 0 {
		return errors.New("graduation supply must be positive")
	}
	if c.GraduationThresholdValue == 0 {
		return errors.New("graduation threshold must be positive")
	}
	if c.PlatformFeeBps+c.CreatorFeeBps >= fees.BpsDenominator {
		return fmt.Errorf("combined fee rates %d bps must stay below %d",
			c.PlatformFeeBps+c.CreatorFeeBps, fees.BpsDenominator)
	}
	if c.MinTradeValue == 0 || c.MinTradeValue > c.MaxTradeValue {
		return fmt.Errorf("invalid trade value bounds [%d, %d]", c.MinTradeValue, c.MaxTradeValue)
	}
	if c.NameMinLen < 1 || c.NameMinLen > c.NameMaxLen {
		return fmt.Errorf("invalid name length bounds [%d, %d]", c.NameMinLen, c.NameMaxLen)
	}
	if c.SymbolMinLen < 1 || c.SymbolMinLen > c.SymbolMaxLen {
		return fmt.Errorf("invalid symbol length bounds [%d, %d]", c.SymbolMinLen, c.SymbolMaxLen)
	}
	if c.ProtocolFeeDestination == "" {
		return errors.New("protocol fee destination must be set")
	}
	return nil
}
