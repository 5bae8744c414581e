package campaign

import (
	"fmt"
	"time"

	"github.com/hydrafund/hydrafund-node/internal/db"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	STATUS_DRAFT     = "draft"
	STATUS_ACTIVE    = "active"
	STATUS_FUNDED    = "funded"
	STATUS_DISBURSED = "disbursed"
	STATUS_EXPIRED   = "expired"
)

// Service owns the campaign records the dashboard lists. It is plain CRUD;
// amounts are lovelace and progress updates come from confirmed
// contributions, not from the composer.
type Service struct {
	dbm *db.DatabaseManager
}

func NewService(dbm *db.DatabaseManager) *Service {
	return &Service{dbm: dbm}
}

func (s *Service) Create(c *db.Campaign) error {
	if c.Title == "" || c.Creator == "" || c.Destination == "" {
		return fmt.Errorf("campaign requires title, creator and destination")
	}
	if c.TargetAmount == 0 {
		return fmt.Errorf("campaign requires a non-zero target")
	}
	if !c.EndTime.After(c.StartTime) {
		return fmt.Errorf("campaign end must be after start")
	}
	if c.Status == "" {
		c.Status = STATUS_DRAFT
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	if err := s.dbm.GetCampaignDB().Create(c).Error; err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	log.Infof("Campaign %d created by %s, target %d lovelace", c.ID, c.Creator, c.TargetAmount)
	return nil
}

func (s *Service) Get(id uint) (*db.Campaign, error) {
	var c db.Campaign
	if err := s.dbm.GetCampaignDB().First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) List() ([]db.Campaign, error) {
	var campaigns []db.Campaign
	if err := s.dbm.GetCampaignDB().Order("created_at desc").Find(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (s *Service) ListByCreator(creator string) ([]db.Campaign, error) {
	var campaigns []db.Campaign
	if err := s.dbm.GetCampaignDB().Where("creator = ?", creator).Order("created_at desc").Find(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

// RecordContribution bumps the raised amount and participant count after a
// contribution confirmed, flipping the record to funded when the target is
// reached.
func (s *Service) RecordContribution(id uint, amount uint64) error {
	return s.dbm.GetCampaignDB().Transaction(func(txn *gorm.DB) error {
		var c db.Campaign
		if err := txn.First(&c, id).Error; err != nil {
			return err
		}
		c.RaisedAmount += amount
		c.Participants++
		if c.RaisedAmount >= c.TargetAmount {
			c.Status = STATUS_FUNDED
		}
		c.UpdatedAt = time.Now()
		return txn.Save(&c).Error
	})
}

// MarkDisbursed flips the record once the locked funds reached the
// destination.
func (s *Service) MarkDisbursed(id uint) error {
	return s.dbm.GetCampaignDB().Model(&db.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": STATUS_DISBURSED, "updated_at": time.Now()}).Error
}

// Delete removes a draft. Only the creator may delete, and only before the
// campaign went active.
func (s *Service) Delete(id uint, creator string) error {
	var c db.Campaign
	if err := s.dbm.GetCampaignDB().First(&c, id).Error; err != nil {
		return err
	}
	if c.Creator != creator {
		return fmt.Errorf("campaign %d is not owned by %s", id, creator)
	}
	if c.Status != STATUS_DRAFT {
		return fmt.Errorf("campaign %d is %s, only drafts can be deleted", id, c.Status)
	}
	return s.dbm.GetCampaignDB().Delete(&db.Campaign{}, id).Error
}

// ExpireOverdue marks active campaigns past their window.
func (s *Service) ExpireOverdue() error {
	return s.dbm.GetCampaignDB().Model(&db.Campaign{}).
		Where("status = ? AND end_time < ?", STATUS_ACTIVE, time.Now()).
		Updates(map[string]interface{}{"status": STATUS_EXPIRED, "updated_at": time.Now()}).Error
}

// Activate moves a draft into the funding window.
func (s *Service) Activate(id uint, creator string) error {
	var c db.Campaign
	if err := s.dbm.GetCampaignDB().First(&c, id).Error; err != nil {
		return err
	}
	if c.Creator != creator {
		return fmt.Errorf("campaign %d is not owned by %s", id, creator)
	}
	if c.Status != STATUS_DRAFT {
		return fmt.Errorf("campaign %d is %s, only drafts can be activated", id, c.Status)
	}
	return s.dbm.GetCampaignDB().Model(&c).
		Updates(map[string]interface{}{"status": STATUS_ACTIVE, "updated_at": time.Now()}).Error
}
