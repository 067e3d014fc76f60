package gormstore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"linkup/backend/internal/models"
	"linkup/backend/internal/relations"
)

// sqlRecorder captures the statements gorm builds in dry-run mode.
type sqlRecorder struct {
	logger.Interface
	statements []string
}

func (r *sqlRecorder) LogMode(logger.LogLevel) logger.Interface { return r }

func (r *sqlRecorder) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	sql, _ := fc()
	r.statements = append(r.statements, sql)
}

func (r *sqlRecorder) last(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, r.statements)
	return r.statements[len(r.statements)-1]
}

func (r *sqlRecorder) all() string {
	return strings.Join(r.statements, "\n")
}

func newDryRunStore(t *testing.T) (*Store, *sqlRecorder) {
	t.Helper()
	rec := &sqlRecorder{Interface: logger.Discard}
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=linkup dbname=linkup sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               rec,
	})
	require.NoError(t, err)
	return New(db), rec
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), relations.ErrRecordNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), relations.ErrDuplicateKey)

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_connections_pair_key"}
	err := translate(fmt.Errorf("insert: %w", pgErr))
	assert.ErrorIs(t, err, relations.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "idx_connections_pair_key")

	other := &pgconn.PgError{Code: "40001"}
	assert.Same(t, other, translate(other))
}

func TestFindConnectionBetweenUsesPairKey(t *testing.T) {
	s, rec := newDryRunStore(t)
	ctx := context.Background()
	a, b := models.IndividualRef(1), models.OrganizationRef(2)

	_, _ = s.FindConnectionBetween(ctx, a, b)
	forward := rec.last(t)
	_, _ = s.FindConnectionBetween(ctx, b, a)
	backward := rec.last(t)

	assert.Contains(t, forward, `pair_key = 'individual:1|organization:2'`)
	assert.Equal(t, forward, backward)
}

func TestSaveConnectionNeverInserts(t *testing.T) {
	s, rec := newDryRunStore(t)
	c := models.NewConnection(models.IndividualRef(1), models.IndividualRef(2), time.Now())
	c.ID = 7
	c.Status = models.StatusAccepted

	err := s.SaveConnection(context.Background(), &c)

	// Dry runs affect no rows.
	assert.ErrorIs(t, err, relations.ErrRecordNotFound)
	sql := rec.last(t)
	assert.True(t, strings.HasPrefix(sql, `UPDATE "connections" SET`), sql)
	assert.Contains(t, sql, `"status"='accepted'`)
	assert.Contains(t, sql, `"id" = 7`)
	assert.NotContains(t, rec.all(), "INSERT")
}

func TestFindConnectionsFilters(t *testing.T) {
	s, rec := newDryRunStore(t)
	party := models.IndividualRef(3)

	_, _, err := s.FindConnections(context.Background(), relations.ConnectionQuery{
		Party:     &party,
		Direction: relations.DirectionIncoming,
		Statuses:  []models.RelationStatus{models.StatusPending},
		Offset:    10,
		Limit:     5,
	})
	require.NoError(t, err)
	require.Len(t, rec.statements, 2)

	count, page := rec.statements[0], rec.statements[1]
	assert.Contains(t, count, "count(*)")
	assert.Contains(t, count, "recipient_id = 3 AND recipient_kind = 'individual'")
	assert.NotContains(t, count, "LIMIT")
	assert.Contains(t, page, "status IN ('pending')")
	assert.Contains(t, page, "ORDER BY updated_at DESC, id DESC")
	assert.Contains(t, page, "LIMIT 5 OFFSET 10")
}

func TestFindConnectionsAnyOfUsesTupleMatch(t *testing.T) {
	s, rec := newDryRunStore(t)

	_, _, err := s.FindConnections(context.Background(), relations.ConnectionQuery{
		AnyOf: []models.AccountRef{models.IndividualRef(1), models.OrganizationRef(2)},
	})
	require.NoError(t, err)

	sql := rec.last(t)
	assert.Contains(t, sql, "(requester_id, requester_kind) IN ((1,'individual'),(2,'organization'))")
	assert.Contains(t, sql, "(recipient_id, recipient_kind) IN ((1,'individual'),(2,'organization'))")
}

func TestFindAccountsByBusinessTypeOnlySearchesOrganizations(t *testing.T) {
	s, rec := newDryRunStore(t)

	_, err := s.FindAccounts(context.Background(), relations.AccountQuery{
		Kind:         models.KindOrganization,
		BusinessType: "Retail",
		Exclude:      []models.AccountRef{models.OrganizationRef(5), models.IndividualRef(6)},
		Limit:        3,
	})
	require.NoError(t, err)

	require.Len(t, rec.statements, 1)
	sql := rec.statements[0]
	assert.Contains(t, sql, `FROM "organizations"`)
	assert.Contains(t, sql, "LOWER(TRIM(business_type)) = LOWER(TRIM('Retail'))")
	assert.Contains(t, sql, "id NOT IN (5)")
	assert.Contains(t, sql, "LIMIT 3")
}

func TestFindAccountsSearchesBothKinds(t *testing.T) {
	s, rec := newDryRunStore(t)

	_, err := s.FindAccounts(context.Background(), relations.AccountQuery{Locality: "Lyon", Limit: 4})
	require.NoError(t, err)

	require.Len(t, rec.statements, 2)
	assert.Contains(t, rec.statements[0], `FROM "users"`)
	assert.Contains(t, rec.statements[1], `FROM "organizations"`)
	for _, sql := range rec.statements {
		assert.Contains(t, sql, "LOWER(TRIM(locality)) = LOWER(TRIM('Lyon'))")
	}
}

func TestBlockersOfUsesJSONContainment(t *testing.T) {
	s, rec := newDryRunStore(t)

	_, err := s.BlockersOf(context.Background(), models.IndividualRef(3))
	require.NoError(t, err)

	require.Len(t, rec.statements, 2)
	assert.Contains(t, rec.statements[0], `FROM "users"`)
	assert.Contains(t, rec.statements[1], `FROM "organizations"`)
	assert.Contains(t, rec.all(), `blocked @> CAST('[{"id":3,"kind":"individual"}]' AS jsonb)`)
}

func TestSetBlockListWritesJSONArray(t *testing.T) {
	s, rec := newDryRunStore(t)

	_ = s.SetBlockList(context.Background(), models.OrganizationRef(9), nil)
	assert.Contains(t, rec.last(t), `"blocked"='[]'`)

	_ = s.SetBlockList(context.Background(), models.IndividualRef(4), models.BlockList{models.OrganizationRef(2)})
	sql := rec.last(t)
	assert.True(t, strings.HasPrefix(sql, `UPDATE "users"`), sql)
	assert.Contains(t, sql, `"blocked"='[{"id":2,"kind":"organization"}]'`)
}

func TestDeleteIndustryIsPermanent(t *testing.T) {
	s, rec := newDryRunStore(t)

	_, err := s.DeleteIndustry(context.Background(), 12)
	require.NoError(t, err)

	sql := rec.last(t)
	assert.True(t, strings.HasPrefix(sql, `DELETE FROM "industries"`), sql)
	assert.Contains(t, sql, `"industries"."id" = 12`)
}
