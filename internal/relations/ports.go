package relations

import (
	"context"

	"linkup/backend/internal/models"
)

// Direction restricts a connection listing relative to the listing account.
type Direction string

const (
	DirectionAny      Direction = ""
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// ParseDirection validates a direction coming from a caller.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirectionAny, DirectionIncoming, DirectionOutgoing:
		return Direction(s), true
	}
	return "", false
}

// ConnectionQuery selects connection edges. All set fields are ANDed.
type ConnectionQuery struct {
	// Party restricts results to edges with this account as an endpoint,
	// on the side selected by Direction.
	Party     *models.AccountRef
	Direction Direction

	// AnyOf restricts results to edges touching at least one of these accounts.
	AnyOf []models.AccountRef

	Statuses []models.RelationStatus

	Offset int
	Limit  int
}

// FollowQuery selects follow edges. All set fields are ANDed.
type FollowQuery struct {
	Follower  *models.AccountRef
	Following *models.AccountRef
	Status    models.RelationStatus
}

// AccountQuery searches the directory. Text fields match case-insensitively.
type AccountQuery struct {
	// Kind restricts the search to one account kind; empty searches both.
	Kind         models.AccountKind
	Locality     string
	Trade        string
	BusinessType string
	Exclude      []models.AccountRef
	Limit        int
}

// ConnectionStore persists connection edges. Implementations must enforce a
// unique pair key and report violations as ErrDuplicateKey.
type ConnectionStore interface {
	CreateConnection(ctx context.Context, c *models.Connection) error
	GetConnection(ctx context.Context, id uint) (*models.Connection, error)
	FindConnectionBetween(ctx context.Context, a, b models.AccountRef) (*models.Connection, error)
	// SaveConnection updates an existing edge; it never inserts.
	SaveConnection(ctx context.Context, c *models.Connection) error
	SetConnectionFollowing(ctx context.Context, id uint, following bool) error
	DeleteConnection(ctx context.Context, id uint) error
	DeleteConnectionsBetween(ctx context.Context, a, b models.AccountRef) (int64, error)
	FindConnections(ctx context.Context, q ConnectionQuery) ([]models.Connection, int64, error)
}

// FollowStore persists follow edges, unique per ordered tuple.
type FollowStore interface {
	FindFollow(ctx context.Context, follower, following models.AccountRef) (*models.Follow, error)
	CreateFollow(ctx context.Context, f *models.Follow) error
	SaveFollow(ctx context.Context, f *models.Follow) error
	DeleteFollow(ctx context.Context, follower, following models.AccountRef) (int64, error)
	CountFollows(ctx context.Context, q FollowQuery) (int64, error)
}

// ContactStore persists CRM contacts, unique per (owner, email).
type ContactStore interface {
	CreateContact(ctx context.Context, c *models.Contact) error
	GetContact(ctx context.Context, id uint) (*models.Contact, error)
	FindContactByEmail(ctx context.Context, ownerID uint, email string) (*models.Contact, error)
	ListContacts(ctx context.Context, ownerID uint) ([]models.Contact, error)
	DeleteContact(ctx context.Context, id uint) error
	DeleteContactsByPlatformUser(ctx context.Context, ownerID, platformUserID uint) (int64, error)
}

// BlockStore reads and writes the block list attached to an account.
type BlockStore interface {
	BlockList(ctx context.Context, owner models.AccountRef) (models.BlockList, error)
	SetBlockList(ctx context.Context, owner models.AccountRef, list models.BlockList) error
	// BlockersOf returns the accounts whose block list contains target.
	BlockersOf(ctx context.Context, target models.AccountRef) ([]models.AccountRef, error)
}

// AccountDirectory resolves accounts and their profile fields.
type AccountDirectory interface {
	Resolve(ctx context.Context, ref models.AccountRef) (*models.Profile, error)
	ResolveMany(ctx context.Context, refs []models.AccountRef) (map[models.AccountRef]models.Profile, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetOrganization(ctx context.Context, id uint) (*models.Organization, error)
	FindAccounts(ctx context.Context, q AccountQuery) ([]models.AccountRef, error)
}

// Store is everything the engine needs from persistence.
type Store interface {
	ConnectionStore
	FollowStore
	ContactStore
	BlockStore
	AccountDirectory
}

// EventPublisher delivers relationship events to interested parties.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

// SuggestionCache stores computed suggestion lists.
type SuggestionCache interface {
	Get(ctx context.Context, root models.AccountRef, key string) ([]Suggestion, bool, error)
	// Set stores items under root. Invalidating any of dependsOn drops them
	// as well as invalidating root does.
	Set(ctx context.Context, root models.AccountRef, key string, items []Suggestion, dependsOn ...models.AccountRef) error
	// Invalidate drops every cached list rooted at, or depending on, one of refs.
	Invalidate(ctx context.Context, refs ...models.AccountRef) error
}
