package db

import (
	"os"
	"path/filepath"

	"github.com/hydrafund/hydrafund-node/internal/config"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type DatabaseManager struct {
	campaignDb *gorm.DB
	sessionDb  *gorm.DB
}

func NewDatabaseManager() *DatabaseManager {
	dm := &DatabaseManager{}
	dm.initDB()
	return dm
}

func (dm *DatabaseManager) initDB() {
	dbDir := config.AppConfig.DbDir
	if err := os.MkdirAll(dbDir, os.ModePerm); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	campaignPath := filepath.Join(dbDir, "campaign.db")
	campaignDb, err := gorm.Open(sqlite.Open(campaignPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to connect to campaign database: %v", err)
	}
	dm.campaignDb = campaignDb
	log.Debugf("Campaign database connected successfully, path: %s", campaignPath)

	sessionPath := filepath.Join(dbDir, "session.db")
	sessionDb, err := gorm.Open(sqlite.Open(sessionPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to connect to session database: %v", err)
	}
	dm.sessionDb = sessionDb
	log.Debugf("Session database connected successfully, path: %s", sessionPath)

	dm.autoMigrate()
	log.Debugf("Database migration completed successfully")
}

func (dm *DatabaseManager) GetCampaignDB() *gorm.DB {
	return dm.campaignDb
}

func (dm *DatabaseManager) GetSessionDB() *gorm.DB {
	return dm.sessionDb
}
