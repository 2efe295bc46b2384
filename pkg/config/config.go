package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pricing      PricingConfig
	Wallet       WalletGatewayConfig
	Bank         BankGatewayConfig
	FeatureFlags FeatureFlagsConfig
	Outbox       OutboxConfig
	PubSub       PubSubConfig
	GCP          GCPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HATBAZAR_APP_ENV" required:"true"`
	Port         string `envconfig:"HATBAZAR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HATBAZAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HATBAZAR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HATBAZAR_DB_DSN"`
	Driver string `envconfig:"HATBAZAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HATBAZAR_DB_HOST"`
	LegacyPort     int    `envconfig:"HATBAZAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HATBAZAR_DB_USER"`
	LegacyPassword string `envconfig:"HATBAZAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"HATBAZAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"HATBAZAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HATBAZAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HATBAZAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HATBAZAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HATBAZAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HATBAZAR_REDIS_URL" required:"true"`
	Password     string        `envconfig:"HATBAZAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"HATBAZAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HATBAZAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HATBAZAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HATBAZAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HATBAZAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HATBAZAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"HATBAZAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HATBAZAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HATBAZAR_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PricingConfig externalizes every settlement rate so rates can change
// without touching the pricing engine.
type PricingConfig struct {
	TaxRate        decimal.Decimal `envconfig:"HATBAZAR_PRICING_TAX_RATE" default:"0.13"`
	CommissionRate decimal.Decimal `envconfig:"HATBAZAR_PRICING_COMMISSION_RATE" default:"0.10"`
	ShippingBase   decimal.Decimal `envconfig:"HATBAZAR_PRICING_SHIPPING_BASE" default:"100"`
	ShippingPerKg  decimal.Decimal `envconfig:"HATBAZAR_PRICING_SHIPPING_PER_KG" default:"0"`
}

func (p PricingConfig) validate() error {
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be in [0,1), got %s", p.TaxRate)
	}
	if p.CommissionRate.IsNegative() || p.CommissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("commission rate must be in [0,1), got %s", p.CommissionRate)
	}
	if p.ShippingBase.IsNegative() || p.ShippingPerKg.IsNegative() {
		return fmt.Errorf("shipping rates must not be negative")
	}
	return nil
}

// WalletGatewayConfig points at the wallet-redirect payment provider.
// The wallet API denominates amounts in minor units (paisa).
type WalletGatewayConfig struct {
	BaseURL   string        `envconfig:"HATBAZAR_WALLET_BASE_URL"`
	SecretKey string        `envconfig:"HATBAZAR_WALLET_SECRET_KEY"`
	Timeout   time.Duration `envconfig:"HATBAZAR_WALLET_TIMEOUT" default:"10s"`
}

// BankGatewayConfig points at the bank-redirect payment provider,
// which works in major currency units.
type BankGatewayConfig struct {
	BaseURL      string        `envconfig:"HATBAZAR_BANK_BASE_URL"`
	MerchantCode string        `envconfig:"HATBAZAR_BANK_MERCHANT_CODE"`
	Timeout      time.Duration `envconfig:"HATBAZAR_BANK_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"HATBAZAR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"HATBAZAR_AUTO_MIGRATE" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"HATBAZAR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"HATBAZAR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"HATBAZAR_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type PubSubConfig struct {
	SettlementTopic string `envconfig:"HATBAZAR_PUBSUB_SETTLEMENT_TOPIC" default:"hb-settlement-events"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"HATBAZAR_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"HATBAZAR_GCP_CREDENTIALS_JSON"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
