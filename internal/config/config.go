package config

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var AppConfig Config

func InitConfig() {
	viper.AutomaticEnv()

	// Default config
	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_DIR", "/app/db")
	viper.SetDefault("NETWORK_ID", 0)
	viper.SetDefault("PROVIDER_URL", "https://cardano-preprod.blockfrost.io/api/v0")
	viper.SetDefault("PROVIDER_PROJECT_ID", "")
	viper.SetDefault("HYDRA_NODE_URL", "ws://localhost:4001")
	viper.SetDefault("WALLET_BRIDGE_URL", "http://localhost:3030")
	viper.SetDefault("CONTRACT_ADDRESS", "")
	viper.SetDefault("SCRIPT_FILE", "/app/artifacts/plutus.json")
	viper.SetDefault("SCRIPT_TITLE", "hydrafund.campaign.spend")
	viper.SetDefault("AUTH_JWT_SECRET", "")
	viper.SetDefault("AUTH_TOKEN_TTL", "24h")
	viper.SetDefault("AUTH_NONCE_TTL", "5m")
	viper.SetDefault("HEAD_WAIT_TIMEOUT", "180s")
	viper.SetDefault("MIN_COLLATERAL", 5000000)

	logLevel, err := logrus.ParseLevel(strings.ToLower(viper.GetString("LOG_LEVEL")))
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}

	AppConfig = Config{
		HTTPPort:          viper.GetString("HTTP_PORT"),
		LogLevel:          logLevel,
		DbDir:             viper.GetString("DB_DIR"),
		NetworkID:         viper.GetInt("NETWORK_ID"),
		ProviderURL:       viper.GetString("PROVIDER_URL"),
		ProviderProjectID: viper.GetString("PROVIDER_PROJECT_ID"),
		HydraNodeURL:      viper.GetString("HYDRA_NODE_URL"),
		WalletBridgeURL:   viper.GetString("WALLET_BRIDGE_URL"),
		ContractAddress:   viper.GetString("CONTRACT_ADDRESS"),
		ScriptFile:        viper.GetString("SCRIPT_FILE"),
		ScriptTitle:       viper.GetString("SCRIPT_TITLE"),
		AuthJwtSecret:     viper.GetString("AUTH_JWT_SECRET"),
		AuthTokenTTL:      viper.GetDuration("AUTH_TOKEN_TTL"),
		AuthNonceTTL:      viper.GetDuration("AUTH_NONCE_TTL"),
		HeadWaitTimeout:   viper.GetDuration("HEAD_WAIT_TIMEOUT"),
		MinCollateral:     viper.GetUint64("MIN_COLLATERAL"),
	}

	if AppConfig.NetworkID == 1 && strings.Contains(AppConfig.ProviderURL, "preprod") {
		logrus.Warnf("NETWORK_ID is mainnet but provider url looks like preprod: %s", AppConfig.ProviderURL)
	}

	logrus.Infof("Init config, NetworkID %d, HydraNodeURL %s, HeadWaitTimeout %v",
		AppConfig.NetworkID, AppConfig.HydraNodeURL, AppConfig.HeadWaitTimeout)

	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(AppConfig.LogLevel)
}

type Config struct {
	HTTPPort          string
	LogLevel          logrus.Level
	DbDir             string
	NetworkID         int
	ProviderURL       string
	ProviderProjectID string
	HydraNodeURL      string
	WalletBridgeURL   string
	ContractAddress   string
	ScriptFile        string
	ScriptTitle       string
	AuthJwtSecret     string
	AuthTokenTTL      time.Duration
	AuthNonceTTL      time.Duration
	HeadWaitTimeout   time.Duration
	MinCollateral     uint64
}
