package config

import (
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInitConfigDefaults(t *testing.T) {
	_ = godotenv.Load("../../.env")
	InitConfig()

	assert.Equal(t, "8080", AppConfig.HTTPPort)
	assert.Equal(t, logrus.InfoLevel, AppConfig.LogLevel)
	assert.Equal(t, 0, AppConfig.NetworkID)
	assert.Equal(t, "ws://localhost:4001", AppConfig.HydraNodeURL)
	assert.Equal(t, "http://localhost:3030", AppConfig.WalletBridgeURL)
	assert.Equal(t, "hydrafund.campaign.spend", AppConfig.ScriptTitle)
	assert.Equal(t, 24*time.Hour, AppConfig.AuthTokenTTL)
	assert.Equal(t, 5*time.Minute, AppConfig.AuthNonceTTL)
	assert.Equal(t, 3*time.Minute, AppConfig.HeadWaitTimeout)
	assert.Equal(t, uint64(5_000_000), AppConfig.MinCollateral)
}
