package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEnsureDSNPrefersExplicitDSN(t *testing.T) {
	cfg := DBConfig{DSN: "postgres://settle:pw@localhost:5432/hatbazar"}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DSN != "postgres://settle:pw@localhost:5432/hatbazar" {
		t.Fatalf("dsn rewritten: %s", cfg.DSN)
	}
}

func TestEnsureDSNBuildsFromLegacyFields(t *testing.T) {
	cfg := DBConfig{
		LegacyHost:     "db.internal",
		LegacyPort:     5432,
		LegacyUser:     "settle",
		LegacyPassword: "pw",
		LegacyName:     "hatbazar",
		LegacySSLMode:  "disable",
	}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "postgres://settle:pw@db.internal:5432/hatbazar?sslmode=disable"
	if cfg.DSN != want {
		t.Fatalf("expected %s, got %s", want, cfg.DSN)
	}
}

func TestEnsureDSNReportsMissingLegacyFields(t *testing.T) {
	cfg := DBConfig{LegacyHost: "db.internal"}
	if err := cfg.ensureDSN(); err == nil {
		t.Fatal("expected error when user and name are missing")
	}
}

func TestPricingConfigValidate(t *testing.T) {
	valid := PricingConfig{
		TaxRate:        decimal.RequireFromString("0.13"),
		CommissionRate: decimal.RequireFromString("0.10"),
		ShippingBase:   decimal.NewFromInt(100),
	}
	if err := valid.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	invalid := valid
	invalid.TaxRate = decimal.NewFromInt(2)
	if err := invalid.validate(); err == nil {
		t.Fatal("expected error for tax rate >= 1")
	}

	invalid = valid
	invalid.ShippingBase = decimal.NewFromInt(-1)
	if err := invalid.validate(); err == nil {
		t.Fatal("expected error for negative shipping base")
	}
}
