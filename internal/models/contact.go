package models

import "time"

// Contact is an address-book entry owned by an individual account.
// Email is unique per owner.
type Contact struct {
	ID             uint   `gorm:"primaryKey"`
	OwnerID        uint   `gorm:"not null;uniqueIndex:idx_contact_owner_email,priority:1"`
	FirstName      string `gorm:"size:255"`
	LastName       string `gorm:"size:255"`
	Email          string `gorm:"size:255;not null;uniqueIndex:idx_contact_owner_email,priority:2"`
	Phone          string `gorm:"size:50"`
	Avatar         string `gorm:"size:512"`
	PlatformUserID *uint  `gorm:"index"`
	IsPlatformUser bool   `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Owner User `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE;"`
}
