package models

import "gorm.io/gorm"

// Industry is an entry of the trade catalog (e.g., "Construction", "Software").
// Accounts store the name, not a foreign key.
type Industry struct {
	gorm.Model
	Name string `gorm:"size:100;unique;not null"`
}
