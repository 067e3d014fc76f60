package models

import "gorm.io/gorm"

// User represents an individual account in the system.
type User struct {
	gorm.Model
	Username     string `gorm:"size:255;unique;not null"`
	FirstName    string `gorm:"size:255"`
	LastName     string `gorm:"size:255"`
	Email        string `gorm:"size:255;unique;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:50;not null;default:'user';index"`
	Locality     string `gorm:"size:255;index"`
	Trade        string `gorm:"size:255;index"`
	Avatar       string `gorm:"size:512"`

	// The organization this user currently acts on behalf of, if any.
	ActiveOrganizationID *uint `gorm:"index"`

	Blocked BlockList `gorm:"type:jsonb;serializer:json;default:'[]'"`
}

// BeforeSave keeps the block list a JSON array rather than null.
func (u *User) BeforeSave(*gorm.DB) error {
	if u.Blocked == nil {
		u.Blocked = BlockList{}
	}
	return nil
}

// Ref returns the account reference of the user.
func (u User) Ref() AccountRef {
	return IndividualRef(u.ID)
}

// Profile returns the directory view of the user.
func (u User) Profile() Profile {
	return Profile{
		Ref:       u.Ref(),
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Locality:  u.Locality,
		Trade:     u.Trade,
		Avatar:    u.Avatar,
	}
}

// Organization represents a business account. It is managed by its owner.
type Organization struct {
	gorm.Model
	OwnerID      uint   `gorm:"not null;index"`
	Name         string `gorm:"size:255;not null"`
	Email        string `gorm:"size:255"`
	Locality     string `gorm:"size:255;index"`
	Trade        string `gorm:"size:255;index"`
	BusinessType string `gorm:"size:100;index"`
	Avatar       string `gorm:"size:512"`

	Blocked BlockList `gorm:"type:jsonb;serializer:json;default:'[]'"`

	Owner User `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE;"`
}

// BeforeSave keeps the block list a JSON array rather than null.
func (o *Organization) BeforeSave(*gorm.DB) error {
	if o.Blocked == nil {
		o.Blocked = BlockList{}
	}
	return nil
}

// Ref returns the account reference of the organization.
func (o Organization) Ref() AccountRef {
	return OrganizationRef(o.ID)
}

// Profile returns the directory view of the organization.
func (o Organization) Profile() Profile {
	return Profile{
		Ref:          o.Ref(),
		Name:         o.Name,
		Email:        o.Email,
		Locality:     o.Locality,
		Trade:        o.Trade,
		BusinessType: o.BusinessType,
		Avatar:       o.Avatar,
	}
}
