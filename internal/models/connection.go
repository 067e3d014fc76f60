package models

import "time"

// RelationStatus defines the state of a connection or follow edge.
type RelationStatus string

const (
	// StatusPending means a request has been sent but not yet answered.
	StatusPending RelationStatus = "pending"

	// StatusAccepted means the request was accepted.
	StatusAccepted RelationStatus = "accepted"

	// StatusRejected means the recipient turned the request down. The requester may resend.
	StatusRejected RelationStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s RelationStatus) Valid() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusRejected
}

// Connection is the mutual relationship between two accounts.
// PairKey is unique, so at most one row exists per unordered pair of accounts.
type Connection struct {
	ID            uint           `gorm:"primaryKey"`
	RequesterID   uint           `gorm:"not null;index:idx_connection_requester"`
	RequesterKind AccountKind    `gorm:"type:varchar(20);not null;index:idx_connection_requester"`
	RecipientID   uint           `gorm:"not null;index:idx_connection_recipient"`
	RecipientKind AccountKind    `gorm:"type:varchar(20);not null;index:idx_connection_recipient"`
	PairKey       string         `gorm:"size:96;not null;uniqueIndex"`
	Status        RelationStatus `gorm:"type:varchar(20);not null;index"`

	// IsFollowing is set once both follow edges of the pair are in place.
	IsFollowing bool `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewConnection builds a pending connection from requester to recipient.
func NewConnection(requester, recipient AccountRef, now time.Time) Connection {
	c := Connection{Status: StatusPending, CreatedAt: now, UpdatedAt: now}
	c.SetParties(requester, recipient)
	return c
}

// Requester returns the account that sent the request.
func (c Connection) Requester() AccountRef {
	return AccountRef{ID: c.RequesterID, Kind: c.RequesterKind}
}

// Recipient returns the account the request was sent to.
func (c Connection) Recipient() AccountRef {
	return AccountRef{ID: c.RecipientID, Kind: c.RecipientKind}
}

// SetParties overwrites the direction of the edge and refreshes its pair key.
func (c *Connection) SetParties(requester, recipient AccountRef) {
	c.RequesterID, c.RequesterKind = requester.ID, requester.Kind
	c.RecipientID, c.RecipientKind = recipient.ID, recipient.Kind
	c.PairKey = PairKey(requester, recipient)
}

// Involves reports whether ref is one of the endpoints.
func (c Connection) Involves(ref AccountRef) bool {
	return c.Requester() == ref || c.Recipient() == ref
}

// Other returns the endpoint that is not ref.
func (c Connection) Other(ref AccountRef) AccountRef {
	if c.Requester() == ref {
		return c.Recipient()
	}
	return c.Requester()
}

// BothIndividuals reports whether both endpoints are individual accounts.
func (c Connection) BothIndividuals() bool {
	return c.RequesterKind == KindIndividual && c.RecipientKind == KindIndividual
}

// Follow is a one-directional visibility edge.
type Follow struct {
	ID            uint           `gorm:"primaryKey"`
	FollowerID    uint           `gorm:"not null;uniqueIndex:idx_follow_tuple,priority:1"`
	FollowerKind  AccountKind    `gorm:"type:varchar(20);not null;uniqueIndex:idx_follow_tuple,priority:2"`
	FollowingID   uint           `gorm:"not null;uniqueIndex:idx_follow_tuple,priority:3;index:idx_follow_following"`
	FollowingKind AccountKind    `gorm:"type:varchar(20);not null;uniqueIndex:idx_follow_tuple,priority:4;index:idx_follow_following"`
	Status        RelationStatus `gorm:"type:varchar(20);not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewFollow builds a follow edge with the given status.
func NewFollow(follower, following AccountRef, status RelationStatus) Follow {
	return Follow{
		FollowerID:    follower.ID,
		FollowerKind:  follower.Kind,
		FollowingID:   following.ID,
		FollowingKind: following.Kind,
		Status:        status,
	}
}

// Follower returns the account doing the following.
func (f Follow) Follower() AccountRef {
	return AccountRef{ID: f.FollowerID, Kind: f.FollowerKind}
}

// Following returns the account being followed.
func (f Follow) Following() AccountRef {
	return AccountRef{ID: f.FollowingID, Kind: f.FollowingKind}
}
