package db

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Campaign model, the funding record the dashboard lists
type Campaign struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"not null" json:"title"`
	Description   string    `json:"description"`
	Creator       string    `gorm:"not null;index" json:"creator"` // creator payment address
	Destination   string    `gorm:"not null" json:"destination"`   // payout address
	TargetAmount  uint64    `gorm:"not null" json:"target_amount"` // lovelace
	RaisedAmount  uint64    `gorm:"not null" json:"raised_amount"` // lovelace
	Participants  uint      `gorm:"not null" json:"participants"`
	Status        string    `gorm:"not null" json:"status"` // "draft", "active", "funded", "disbursed", "expired"
	StartTime     time.Time `gorm:"not null" json:"start_time"`
	EndTime       time.Time `gorm:"not null" json:"end_time"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

// WalletLink model (only 1 record per address), remembers the wallet
// extension last used for a session so silent reconnect can pick it again
type WalletLink struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Address    string    `gorm:"not null;uniqueIndex" json:"address"`
	WalletName string    `gorm:"not null" json:"wallet_name"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

// AuthNonce model, one-time challenge issued per address
type AuthNonce struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Address   string    `gorm:"not null;index" json:"address"`
	Nonce     string    `gorm:"not null;uniqueIndex" json:"nonce"`
	Used      bool      `gorm:"not null" json:"used"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (dm *DatabaseManager) autoMigrate() {
	if err := dm.campaignDb.AutoMigrate(&Campaign{}); err != nil {
		log.Fatalf("Failed to migrate campaign database: %v", err)
	}
	if err := dm.sessionDb.AutoMigrate(&WalletLink{}, &AuthNonce{}); err != nil {
		log.Fatalf("Failed to migrate session database: %v", err)
	}
}
