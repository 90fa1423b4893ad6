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

	// Token ledger settings.
	EthRPCURL            string
	TokenContractAddress string
	OperatorPrivateKey   string
	ChainID              int64

	// ExcludeOwnerFromDistribution flips the payout policy for owner-held
	// inventory.
	ExcludeOwnerFromDistribution bool

	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
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
		dbURL = os.Getenv("DATABASE_URL")
	}

	chainID := viper.GetInt64("CHAIN_ID")
	if chainID == 0 {
		chainID = 1337
	}

	return &Config{
		Env:                          env,
		Port:                         port,
		SessionSecret:                viper.GetString("SESSION_SECRET"),
		DatabaseURL:                  dbURL,
		RedisURL:                     viper.GetString("REDIS_URL"),
		EthRPCURL:                    viper.GetString("ETH_RPC_URL"),
		TokenContractAddress:         viper.GetString("TOKEN_CONTRACT_ADDRESS"),
		OperatorPrivateKey:           viper.GetString("OPERATOR_PRIVATE_KEY"),
		ChainID:                      chainID,
		ExcludeOwnerFromDistribution: strings.EqualFold(viper.GetString("EXCLUDE_OWNER_FROM_DISTRIBUTION"), "true"),
		FrontendURLEndsWith:          viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:                  viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:            strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
	}, nil
}
