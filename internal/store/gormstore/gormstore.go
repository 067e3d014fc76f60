// Package gormstore implements store.Store on top of gorm and Postgres.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"linkup/backend/internal/models"
	"linkup/backend/internal/relations"
	"linkup/backend/internal/store"
)

var _ store.Store = (*Store)(nil)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Store is a gorm-backed store. The *gorm.DB should be opened with
// TranslateError enabled; raw pgconn errors are translated as well.
type Store struct {
	db *gorm.DB
}

// New returns a Store using db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// translate maps driver errors onto the sentinels the engine understands.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return relations.ErrRecordNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", relations.ErrDuplicateKey, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", relations.ErrDuplicateKey, pgErr.ConstraintName)
	}
	return err
}

// affected turns an update or delete that matched nothing into ErrRecordNotFound.
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return relations.ErrRecordNotFound
	}
	return nil
}

// region --- Accounts ---

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Create(u).Error)
}

func (s *Store) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var u models.User
	err := s.conn(ctx).Where("username = ? OR LOWER(email) = LOWER(?)", login, login).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	return affected(s.conn(ctx).Model(u).Select("*").Omit("CreatedAt", "DeletedAt").Updates(u))
}

func (s *Store) CreateOrganization(ctx context.Context, o *models.Organization) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(o).Error)
}

func (s *Store) GetOrganization(ctx context.Context, id uint) (*models.Organization, error) {
	var o models.Organization
	if err := s.conn(ctx).First(&o, id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *Store) ListOrganizationsByOwner(ctx context.Context, ownerID uint) ([]models.Organization, error) {
	var orgs []models.Organization
	err := s.conn(ctx).Where("owner_id = ?", ownerID).Order("id").Find(&orgs).Error
	return orgs, translate(err)
}

// endregion

// region --- Directory ---

func (s *Store) Resolve(ctx context.Context, ref models.AccountRef) (*models.Profile, error) {
	switch ref.Kind {
	case models.KindIndividual:
		u, err := s.GetUser(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		p := u.Profile()
		return &p, nil
	case models.KindOrganization:
		o, err := s.GetOrganization(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		p := o.Profile()
		return &p, nil
	}
	return nil, relations.ErrRecordNotFound
}

func (s *Store) ResolveMany(ctx context.Context, refs []models.AccountRef) (map[models.AccountRef]models.Profile, error) {
	out := make(map[models.AccountRef]models.Profile, len(refs))
	userIDs, orgIDs := splitIDs(refs)
	if len(userIDs) > 0 {
		var users []models.User
		if err := s.conn(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, translate(err)
		}
		for _, u := range users {
			out[u.Ref()] = u.Profile()
		}
	}
	if len(orgIDs) > 0 {
		var orgs []models.Organization
		if err := s.conn(ctx).Where("id IN ?", orgIDs).Find(&orgs).Error; err != nil {
			return nil, translate(err)
		}
		for _, o := range orgs {
			out[o.Ref()] = o.Profile()
		}
	}
	return out, nil
}

// FindAccounts searches individuals first, then organizations, each ordered by id.
func (s *Store) FindAccounts(ctx context.Context, q relations.AccountQuery) ([]models.AccountRef, error) {
	userIDs, orgIDs := splitIDs(q.Exclude)
	var out []models.AccountRef

	// Individuals have no business type.
	if (q.Kind == "" || q.Kind == models.KindIndividual) && q.BusinessType == "" {
		ids, err := s.findIDs(ctx, &models.User{}, q, userIDs, q.Limit)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			out = append(out, models.IndividualRef(id))
		}
	}
	if q.Kind == "" || q.Kind == models.KindOrganization {
		limit := q.Limit
		if limit > 0 {
			limit -= len(out)
			if limit <= 0 {
				return out, nil
			}
		}
		ids, err := s.findIDs(ctx, &models.Organization{}, q, orgIDs, limit)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			out = append(out, models.OrganizationRef(id))
		}
	}
	return out, nil
}

func (s *Store) findIDs(ctx context.Context, model any, q relations.AccountQuery, exclude []uint, limit int) ([]uint, error) {
	tx := s.conn(ctx).Model(model)
	if q.Locality != "" {
		tx = tx.Where("LOWER(TRIM(locality)) = LOWER(TRIM(?))", q.Locality)
	}
	if q.Trade != "" {
		tx = tx.Where("LOWER(TRIM(trade)) = LOWER(TRIM(?))", q.Trade)
	}
	if q.BusinessType != "" {
		tx = tx.Where("LOWER(TRIM(business_type)) = LOWER(TRIM(?))", q.BusinessType)
	}
	if len(exclude) > 0 {
		tx = tx.Where("id NOT IN ?", exclude)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var ids []uint
	err := tx.Order("id").Pluck("id", &ids).Error
	return ids, translate(err)
}

func splitIDs(refs []models.AccountRef) (users, orgs []uint) {
	for _, ref := range refs {
		switch ref.Kind {
		case models.KindIndividual:
			users = append(users, ref.ID)
		case models.KindOrganization:
			orgs = append(orgs, ref.ID)
		}
	}
	return users, orgs
}

// endregion

// region --- Connections ---

func (s *Store) CreateConnection(ctx context.Context, c *models.Connection) error {
	return translate(s.conn(ctx).Create(c).Error)
}

func (s *Store) GetConnection(ctx context.Context, id uint) (*models.Connection, error) {
	var c models.Connection
	if err := s.conn(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) FindConnectionBetween(ctx context.Context, a, b models.AccountRef) (*models.Connection, error) {
	var c models.Connection
	if err := s.conn(ctx).Where("pair_key = ?", models.PairKey(a, b)).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// SaveConnection updates every column of c. Unlike gorm's Save it never inserts.
func (s *Store) SaveConnection(ctx context.Context, c *models.Connection) error {
	return affected(s.conn(ctx).Model(c).Select("*").Omit("CreatedAt").Updates(c))
}

func (s *Store) SetConnectionFollowing(ctx context.Context, id uint, following bool) error {
	return affected(s.conn(ctx).Model(&models.Connection{}).Where("id = ?", id).Update("is_following", following))
}

func (s *Store) DeleteConnection(ctx context.Context, id uint) error {
	return affected(s.conn(ctx).Delete(&models.Connection{}, id))
}

func (s *Store) DeleteConnectionsBetween(ctx context.Context, a, b models.AccountRef) (int64, error) {
	res := s.conn(ctx).Where("pair_key = ?", models.PairKey(a, b)).Delete(&models.Connection{})
	return res.RowsAffected, translate(res.Error)
}

func (s *Store) FindConnections(ctx context.Context, q relations.ConnectionQuery) ([]models.Connection, int64, error) {
	filter := connectionFilter(q)

	var total int64
	if err := s.conn(ctx).Model(&models.Connection{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	tx := s.conn(ctx).Scopes(filter).Order("updated_at DESC, id DESC")
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var edges []models.Connection
	if err := tx.Find(&edges).Error; err != nil {
		return nil, 0, translate(err)
	}
	return edges, total, nil
}

func connectionFilter(q relations.ConnectionQuery) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if p := q.Party; p != nil {
			switch q.Direction {
			case relations.DirectionIncoming:
				tx = tx.Where("recipient_id = ? AND recipient_kind = ?", p.ID, string(p.Kind))
			case relations.DirectionOutgoing:
				tx = tx.Where("requester_id = ? AND requester_kind = ?", p.ID, string(p.Kind))
			default:
				tx = tx.Where("((requester_id = ? AND requester_kind = ?) OR (recipient_id = ? AND recipient_kind = ?))",
					p.ID, string(p.Kind), p.ID, string(p.Kind))
			}
		}
		if len(q.AnyOf) > 0 {
			tuples := make([][]any, 0, len(q.AnyOf))
			for _, ref := range q.AnyOf {
				tuples = append(tuples, []any{ref.ID, string(ref.Kind)})
			}
			tx = tx.Where("((requester_id, requester_kind) IN ? OR (recipient_id, recipient_kind) IN ?)", tuples, tuples)
		}
		if len(q.Statuses) > 0 {
			tx = tx.Where("status IN ?", q.Statuses)
		}
		return tx
	}
}

// endregion

// region --- Follows ---

func followTuple(tx *gorm.DB, follower, following models.AccountRef) *gorm.DB {
	return tx.Where("follower_id = ? AND follower_kind = ? AND following_id = ? AND following_kind = ?",
		follower.ID, string(follower.Kind), following.ID, string(following.Kind))
}

func (s *Store) FindFollow(ctx context.Context, follower, following models.AccountRef) (*models.Follow, error) {
	var f models.Follow
	if err := followTuple(s.conn(ctx), follower, following).First(&f).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (s *Store) CreateFollow(ctx context.Context, f *models.Follow) error {
	return translate(s.conn(ctx).Create(f).Error)
}

func (s *Store) SaveFollow(ctx context.Context, f *models.Follow) error {
	return affected(s.conn(ctx).Model(f).Select("*").Omit("CreatedAt").Updates(f))
}

func (s *Store) DeleteFollow(ctx context.Context, follower, following models.AccountRef) (int64, error) {
	res := followTuple(s.conn(ctx), follower, following).Delete(&models.Follow{})
	return res.RowsAffected, translate(res.Error)
}

func (s *Store) CountFollows(ctx context.Context, q relations.FollowQuery) (int64, error) {
	tx := s.conn(ctx).Model(&models.Follow{})
	if q.Follower != nil {
		tx = tx.Where("follower_id = ? AND follower_kind = ?", q.Follower.ID, string(q.Follower.Kind))
	}
	if q.Following != nil {
		tx = tx.Where("following_id = ? AND following_kind = ?", q.Following.ID, string(q.Following.Kind))
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", string(q.Status))
	}
	var n int64
	err := tx.Count(&n).Error
	return n, translate(err)
}

// endregion

// region --- Contacts ---

func (s *Store) CreateContact(ctx context.Context, c *models.Contact) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(c).Error)
}

func (s *Store) GetContact(ctx context.Context, id uint) (*models.Contact, error) {
	var c models.Contact
	if err := s.conn(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) FindContactByEmail(ctx context.Context, ownerID uint, email string) (*models.Contact, error) {
	var c models.Contact
	err := s.conn(ctx).Where("owner_id = ? AND LOWER(email) = LOWER(?)", ownerID, email).First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) ListContacts(ctx context.Context, ownerID uint) ([]models.Contact, error) {
	contacts := []models.Contact{}
	err := s.conn(ctx).Where("owner_id = ?", ownerID).Order("id").Find(&contacts).Error
	return contacts, translate(err)
}

func (s *Store) DeleteContact(ctx context.Context, id uint) error {
	return affected(s.conn(ctx).Delete(&models.Contact{}, id))
}

func (s *Store) DeleteContactsByPlatformUser(ctx context.Context, ownerID, platformUserID uint) (int64, error) {
	res := s.conn(ctx).Where("owner_id = ? AND platform_user_id = ?", ownerID, platformUserID).Delete(&models.Contact{})
	return res.RowsAffected, translate(res.Error)
}

// endregion

// region --- Blocks ---

func accountModel(kind models.AccountKind) (any, bool) {
	switch kind {
	case models.KindIndividual:
		return &models.User{}, true
	case models.KindOrganization:
		return &models.Organization{}, true
	}
	return nil, false
}

func (s *Store) BlockList(ctx context.Context, owner models.AccountRef) (models.BlockList, error) {
	switch owner.Kind {
	case models.KindIndividual:
		var u models.User
		if err := s.conn(ctx).Select("id", "blocked").First(&u, owner.ID).Error; err != nil {
			return nil, translate(err)
		}
		return u.Blocked, nil
	case models.KindOrganization:
		var o models.Organization
		if err := s.conn(ctx).Select("id", "blocked").First(&o, owner.ID).Error; err != nil {
			return nil, translate(err)
		}
		return o.Blocked, nil
	}
	return nil, relations.ErrRecordNotFound
}

func (s *Store) SetBlockList(ctx context.Context, owner models.AccountRef, list models.BlockList) error {
	model, ok := accountModel(owner.Kind)
	if !ok {
		return relations.ErrRecordNotFound
	}
	if list == nil {
		list = models.BlockList{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return affected(s.conn(ctx).Model(model).Where("id = ?", owner.ID).Update("blocked", string(data)))
}

func (s *Store) BlockersOf(ctx context.Context, target models.AccountRef) ([]models.AccountRef, error) {
	needle, err := json.Marshal(models.BlockList{target})
	if err != nil {
		return nil, err
	}
	var out []models.AccountRef
	for _, kind := range []models.AccountKind{models.KindIndividual, models.KindOrganization} {
		model, _ := accountModel(kind)
		var ids []uint
		err := s.conn(ctx).Model(model).Where("blocked @> CAST(? AS jsonb)", string(needle)).Order("id").Pluck("id", &ids).Error
		if err != nil {
			return nil, translate(err)
		}
		for _, id := range ids {
			out = append(out, models.AccountRef{ID: id, Kind: kind})
		}
	}
	return out, nil
}

// endregion

// region --- Industries ---

func (s *Store) CreateIndustry(ctx context.Context, i *models.Industry) error {
	return translate(s.conn(ctx).Create(i).Error)
}

func (s *Store) GetIndustry(ctx context.Context, id uint) (*models.Industry, error) {
	var i models.Industry
	if err := s.conn(ctx).First(&i, id).Error; err != nil {
		return nil, translate(err)
	}
	return &i, nil
}

func (s *Store) ListIndustries(ctx context.Context) ([]models.Industry, error) {
	industries := []models.Industry{}
	err := s.conn(ctx).Order("name").Find(&industries).Error
	return industries, translate(err)
}

func (s *Store) SaveIndustry(ctx context.Context, i *models.Industry) error {
	return affected(s.conn(ctx).Model(i).Select("Name").Updates(i))
}

// DeleteIndustry removes the row for good so the name can be reused.
func (s *Store) DeleteIndustry(ctx context.Context, id uint) (int64, error) {
	res := s.conn(ctx).Unscoped().Delete(&models.Industry{}, id)
	return res.RowsAffected, translate(res.Error)
}

// endregion
