// Package memstore is an in-memory implementation of store.Store. It
// enforces the same uniqueness rules as the Postgres schema and is used by
// tests and by the "memory" store driver.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"linkup/backend/internal/models"
	"linkup/backend/internal/relations"
	"linkup/backend/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps every record in maps guarded by a single lock.
type Store struct {
	mu         sync.RWMutex
	seq        uint
	users      map[uint]models.User
	orgs       map[uint]models.Organization
	conns      map[uint]models.Connection
	follows    map[uint]models.Follow
	contacts   map[uint]models.Contact
	industries map[uint]models.Industry
	now        func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:      make(map[uint]models.User),
		orgs:       make(map[uint]models.Organization),
		conns:      make(map[uint]models.Connection),
		follows:    make(map[uint]models.Follow),
		contacts:   make(map[uint]models.Contact),
		industries: make(map[uint]models.Industry),
		now:        time.Now,
	}
}

func (s *Store) nextID() uint {
	s.seq++
	return s.seq
}

func (s *Store) stamp(m *gorm.Model) {
	now := s.now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// region --- Accounts ---

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userTaken(u, 0) {
		return relations.ErrDuplicateKey
	}
	u.ID = s.nextID()
	s.stamp(&u.Model)
	if u.Blocked == nil {
		u.Blocked = models.BlockList{}
	}
	s.users[u.ID] = cloneUser(*u)
	return nil
}

func (s *Store) userTaken(u *models.User, self uint) bool {
	for id, other := range s.users {
		if id == self {
			continue
		}
		if other.Username == u.Username || strings.EqualFold(other.Email, u.Email) {
			return true
		}
	}
	return false
}

func (s *Store) FindUserByLogin(_ context.Context, login string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == login || strings.EqualFold(u.Email, login) {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, relations.ErrRecordNotFound
}

func (s *Store) GetUser(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, relations.ErrRecordNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

func (s *Store) SaveUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return relations.ErrRecordNotFound
	}
	if s.userTaken(u, u.ID) {
		return relations.ErrDuplicateKey
	}
	s.stamp(&u.Model)
	s.users[u.ID] = cloneUser(*u)
	return nil
}

func (s *Store) CreateOrganization(_ context.Context, o *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[o.OwnerID]; !ok {
		return relations.ErrRecordNotFound
	}
	o.ID = s.nextID()
	s.stamp(&o.Model)
	if o.Blocked == nil {
		o.Blocked = models.BlockList{}
	}
	s.orgs[o.ID] = cloneOrg(*o)
	return nil
}

func (s *Store) GetOrganization(_ context.Context, id uint) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[id]
	if !ok {
		return nil, relations.ErrRecordNotFound
	}
	out := cloneOrg(o)
	return &out, nil
}

func (s *Store) ListOrganizationsByOwner(_ context.Context, ownerID uint) ([]models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Organization
	for _, o := range s.orgs {
		if o.OwnerID == ownerID {
			out = append(out, cloneOrg(o))
		}
	}
	slices.SortFunc(out, func(a, b models.Organization) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// endregion

// region --- Directory ---

func (s *Store) Resolve(_ context.Context, ref models.AccountRef) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profile(ref)
	if !ok {
		return nil, relations.ErrRecordNotFound
	}
	return &p, nil
}

func (s *Store) ResolveMany(_ context.Context, refs []models.AccountRef) (map[models.AccountRef]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.AccountRef]models.Profile, len(refs))
	for _, ref := range refs {
		if p, ok := s.profile(ref); ok {
			out[ref] = p
		}
	}
	return out, nil
}

func (s *Store) profile(ref models.AccountRef) (models.Profile, bool) {
	switch ref.Kind {
	case models.KindIndividual:
		if u, ok := s.users[ref.ID]; ok {
			return u.Profile(), true
		}
	case models.KindOrganization:
		if o, ok := s.orgs[ref.ID]; ok {
			return o.Profile(), true
		}
	}
	return models.Profile{}, false
}

func (s *Store) FindAccounts(_ context.Context, q relations.AccountQuery) ([]models.AccountRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	excluded := make(map[models.AccountRef]bool, len(q.Exclude))
	for _, ref := range q.Exclude {
		excluded[ref] = true
	}

	var candidates []models.Profile
	if q.Kind == "" || q.Kind == models.KindIndividual {
		for _, u := range s.users {
			candidates = append(candidates, u.Profile())
		}
	}
	if q.Kind == "" || q.Kind == models.KindOrganization {
		for _, o := range s.orgs {
			candidates = append(candidates, o.Profile())
		}
	}
	slices.SortFunc(candidates, func(a, b models.Profile) int {
		return cmp.Or(cmp.Compare(a.Ref.Kind, b.Ref.Kind), cmp.Compare(a.Ref.ID, b.Ref.ID))
	})

	var out []models.AccountRef
	for _, p := range candidates {
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
		if excluded[p.Ref] || !matchText(p.Locality, q.Locality) || !matchText(p.Trade, q.Trade) || !matchText(p.BusinessType, q.BusinessType) {
			continue
		}
		out = append(out, p.Ref)
	}
	return out, nil
}

// matchText is a case-insensitive equality that ignores empty filters.
func matchText(value, filter string) bool {
	return filter == "" || strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(filter))
}

// endregion

// region --- Connections ---

func (s *Store) CreateConnection(_ context.Context, c *models.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pairTaken(c.PairKey, 0) {
		return relations.ErrDuplicateKey
	}
	c.ID = s.nextID()
	now := s.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	s.conns[c.ID] = *c
	return nil
}

func (s *Store) pairTaken(key string, self uint) bool {
	for id, c := range s.conns {
		if id != self && c.PairKey == key {
			return true
		}
	}
	return false
}

func (s *Store) GetConnection(_ context.Context, id uint) (*models.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conns[id]
	if !ok {
		return nil, relations.ErrRecordNotFound
	}
	return &c, nil
}

func (s *Store) FindConnectionBetween(_ context.Context, a, b models.AccountRef) (*models.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := models.PairKey(a, b)
	for _, c := range s.conns {
		if c.PairKey == key {
			return &c, nil
		}
	}
	return nil, relations.ErrRecordNotFound
}

func (s *Store) SaveConnection(_ context.Context, c *models.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[c.ID]; !ok {
		return relations.ErrRecordNotFound
	}
	if s.pairTaken(c.PairKey, c.ID) {
		return relations.ErrDuplicateKey
	}
	s.conns[c.ID] = *c
	return nil
}

func (s *Store) SetConnectionFollowing(_ context.Context, id uint, following bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[id]
	if !ok {
		return relations.ErrRecordNotFound
	}
	c.IsFollowing = following
	s.conns[id] = c
	return nil
}

func (s *Store) DeleteConnection(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[id]; !ok {
		return relations.ErrRecordNotFound
	}
	delete(s.conns, id)
	return nil
}

func (s *Store) DeleteConnectionsBetween(_ context.Context, a, b models.AccountRef) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.conns {
		if models.SamePair(c.Requester(), c.Recipient(), a, b) {
			delete(s.conns, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) FindConnections(_ context.Context, q relations.ConnectionQuery) ([]models.Connection, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []models.Connection
	for _, c := range s.conns {
		if matchConnection(c, q) {
			matched = append(matched, c)
		}
	}
	slices.SortFunc(matched, func(a, b models.Connection) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(b.ID, a.ID))
	})
	total := int64(len(matched))
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []models.Connection{}, total, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func matchConnection(c models.Connection, q relations.ConnectionQuery) bool {
	if q.Party != nil {
		switch q.Direction {
		case relations.DirectionIncoming:
			if c.Recipient() != *q.Party {
				return false
			}
		case relations.DirectionOutgoing:
			if c.Requester() != *q.Party {
				return false
			}
		default:
			if !c.Involves(*q.Party) {
				return false
			}
		}
	}
	if len(q.AnyOf) > 0 && !slices.ContainsFunc(q.AnyOf, c.Involves) {
		return false
	}
	if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, c.Status) {
		return false
	}
	return true
}

// endregion

// region --- Follows ---

func (s *Store) FindFollow(_ context.Context, follower, following models.AccountRef) (*models.Follow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.findFollow(follower, following); ok {
		return &f, nil
	}
	return nil, relations.ErrRecordNotFound
}

func (s *Store) findFollow(follower, following models.AccountRef) (models.Follow, bool) {
	for _, f := range s.follows {
		if f.Follower() == follower && f.Following() == following {
			return f, true
		}
	}
	return models.Follow{}, false
}

func (s *Store) CreateFollow(_ context.Context, f *models.Follow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findFollow(f.Follower(), f.Following()); ok {
		return relations.ErrDuplicateKey
	}
	f.ID = s.nextID()
	now := s.now()
	f.CreatedAt, f.UpdatedAt = now, now
	s.follows[f.ID] = *f
	return nil
}

func (s *Store) SaveFollow(_ context.Context, f *models.Follow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.follows[f.ID]; !ok {
		return relations.ErrRecordNotFound
	}
	f.UpdatedAt = s.now()
	s.follows[f.ID] = *f
	return nil
}

func (s *Store) DeleteFollow(_ context.Context, follower, following models.AccountRef) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, f := range s.follows {
		if f.Follower() == follower && f.Following() == following {
			delete(s.follows, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) CountFollows(_ context.Context, q relations.FollowQuery) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, f := range s.follows {
		if q.Follower != nil && f.Follower() != *q.Follower {
			continue
		}
		if q.Following != nil && f.Following() != *q.Following {
			continue
		}
		if q.Status != "" && f.Status != q.Status {
			continue
		}
		n++
	}
	return n, nil
}

// endregion

// region --- Contacts ---

func (s *Store) CreateContact(_ context.Context, c *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.contacts {
		if other.OwnerID == c.OwnerID && strings.EqualFold(other.Email, c.Email) {
			return relations.ErrDuplicateKey
		}
	}
	c.ID = s.nextID()
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.contacts[c.ID] = cloneContact(*c)
	return nil
}

func (s *Store) GetContact(_ context.Context, id uint) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[id]
	if !ok {
		return nil, relations.ErrRecordNotFound
	}
	out := cloneContact(c)
	return &out, nil
}

func (s *Store) FindContactByEmail(_ context.Context, ownerID uint, email string) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contacts {
		if c.OwnerID == ownerID && strings.EqualFold(c.Email, email) {
			out := cloneContact(c)
			return &out, nil
		}
	}
	return nil, relations.ErrRecordNotFound
}

func (s *Store) ListContacts(_ context.Context, ownerID uint) ([]models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Contact{}
	for _, c := range s.contacts {
		if c.OwnerID == ownerID {
			out = append(out, cloneContact(c))
		}
	}
	slices.SortFunc(out, func(a, b models.Contact) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) DeleteContact(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[id]; !ok {
		return relations.ErrRecordNotFound
	}
	delete(s.contacts, id)
	return nil
}

func (s *Store) DeleteContactsByPlatformUser(_ context.Context, ownerID, platformUserID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.contacts {
		if c.OwnerID == ownerID && c.PlatformUserID != nil && *c.PlatformUserID == platformUserID {
			delete(s.contacts, id)
			n++
		}
	}
	return n, nil
}

// endregion

// region --- Blocks ---

func (s *Store) BlockList(_ context.Context, owner models.AccountRef) (models.BlockList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch owner.Kind {
	case models.KindIndividual:
		if u, ok := s.users[owner.ID]; ok {
			return slices.Clone(u.Blocked), nil
		}
	case models.KindOrganization:
		if o, ok := s.orgs[owner.ID]; ok {
			return slices.Clone(o.Blocked), nil
		}
	}
	return nil, relations.ErrRecordNotFound
}

func (s *Store) SetBlockList(_ context.Context, owner models.AccountRef, list models.BlockList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list = append(models.BlockList{}, list...)
	switch owner.Kind {
	case models.KindIndividual:
		if u, ok := s.users[owner.ID]; ok {
			u.Blocked = list
			s.users[owner.ID] = u
			return nil
		}
	case models.KindOrganization:
		if o, ok := s.orgs[owner.ID]; ok {
			o.Blocked = list
			s.orgs[owner.ID] = o
			return nil
		}
	}
	return relations.ErrRecordNotFound
}

func (s *Store) BlockersOf(_ context.Context, target models.AccountRef) ([]models.AccountRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AccountRef
	for _, u := range s.users {
		if u.Blocked.Contains(target) {
			out = append(out, u.Ref())
		}
	}
	for _, o := range s.orgs {
		if o.Blocked.Contains(target) {
			out = append(out, o.Ref())
		}
	}
	return out, nil
}

// endregion

// region --- Industries ---

func (s *Store) CreateIndustry(_ context.Context, i *models.Industry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.industries {
		if strings.EqualFold(other.Name, i.Name) {
			return relations.ErrDuplicateKey
		}
	}
	i.ID = s.nextID()
	s.stamp(&i.Model)
	s.industries[i.ID] = *i
	return nil
}

func (s *Store) GetIndustry(_ context.Context, id uint) (*models.Industry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.industries[id]
	if !ok {
		return nil, relations.ErrRecordNotFound
	}
	return &i, nil
}

func (s *Store) ListIndustries(_ context.Context) ([]models.Industry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Industry, 0, len(s.industries))
	for _, i := range s.industries {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b models.Industry) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) SaveIndustry(_ context.Context, i *models.Industry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.industries[i.ID]; !ok {
		return relations.ErrRecordNotFound
	}
	for id, other := range s.industries {
		if id != i.ID && strings.EqualFold(other.Name, i.Name) {
			return relations.ErrDuplicateKey
		}
	}
	s.stamp(&i.Model)
	s.industries[i.ID] = *i
	return nil
}

func (s *Store) DeleteIndustry(_ context.Context, id uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.industries[id]; !ok {
		return 0, nil
	}
	delete(s.industries, id)
	return 1, nil
}

// endregion

func cloneUser(u models.User) models.User {
	u.Blocked = slices.Clone(u.Blocked)
	if u.ActiveOrganizationID != nil {
		id := *u.ActiveOrganizationID
		u.ActiveOrganizationID = &id
	}
	return u
}

func cloneOrg(o models.Organization) models.Organization {
	o.Blocked = slices.Clone(o.Blocked)
	return o
}

func cloneContact(c models.Contact) models.Contact {
	if c.PlatformUserID != nil {
		id := *c.PlatformUserID
		c.PlatformUserID = &id
	}
	return c
}
