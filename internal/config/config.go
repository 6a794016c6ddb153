package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env           string
	Port          string
	SessionSecret string
	DatabaseURL   string
	RedisURL      string

	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string

	// External collaborator endpoints. Empty URL means the in-memory
	// implementation is wired instead (dev/test mode).
	FeeRegistryURL    string
	FeeRegistryAPIKey string
	CustodyURL        string
	CustodyAPIKey     string
	ControllerURL     string
	ControllerAPIKey  string
	AddressBookURL    string
	AddressBookAPIKey string
	SwapURL           string
	SwapAPIKey        string

	// Fallback protocol fee schedule used when no fee registry is configured.
	ProtocolDepositFeeBps     uint64
	ProtocolWithdrawalFeeBps  uint64
	ProtocolPerformanceFeeBps uint64
	ProtocolPayoutAccount     string

	// Static collaborator accounts for dev mode.
	ControllerAccount string
	MarginPoolAccount string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	payout := viper.GetString("PROTOCOL_PAYOUT_ACCOUNT")
	if payout == "" {
		payout = "protocol-treasury"
	}

	return &Config{
		Env:           env,
		Port:          port,
		SessionSecret: viper.GetString("SESSION_SECRET"),
		DatabaseURL:   dbURL,
		RedisURL:      viper.GetString("REDIS_URL"),

		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),

		FeeRegistryURL:    viper.GetString("FEE_REGISTRY_URL"),
		FeeRegistryAPIKey: viper.GetString("FEE_REGISTRY_API_KEY"),
		CustodyURL:        viper.GetString("CUSTODY_URL"),
		CustodyAPIKey:     viper.GetString("CUSTODY_API_KEY"),
		ControllerURL:     viper.GetString("CONTROLLER_URL"),
		ControllerAPIKey:  viper.GetString("CONTROLLER_API_KEY"),
		AddressBookURL:    viper.GetString("ADDRESS_BOOK_URL"),
		AddressBookAPIKey: viper.GetString("ADDRESS_BOOK_API_KEY"),
		SwapURL:           viper.GetString("SWAP_URL"),
		SwapAPIKey:        viper.GetString("SWAP_API_KEY"),

		ProtocolDepositFeeBps:     viper.GetUint64("PROTOCOL_DEPOSIT_FEE_BPS"),
		ProtocolWithdrawalFeeBps:  viper.GetUint64("PROTOCOL_WITHDRAWAL_FEE_BPS"),
		ProtocolPerformanceFeeBps: viper.GetUint64("PROTOCOL_PERFORMANCE_FEE_BPS"),
		ProtocolPayoutAccount:     payout,

		ControllerAccount: viper.GetString("CONTROLLER_ACCOUNT"),
		MarginPoolAccount: viper.GetString("MARGIN_POOL_ACCOUNT"),
	}, nil
}
