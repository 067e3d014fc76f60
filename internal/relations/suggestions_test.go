package relations_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkup/backend/internal/models"
	"linkup/backend/internal/relations"
	"linkup/backend/internal/store/memstore"
)

func located(locality, trade string) func(*models.User) {
	return func(u *models.User) {
		u.Locality = locality
		u.Trade = trade
	}
}

func accounts(items []relations.Suggestion) []models.AccountRef {
	out := make([]models.AccountRef, len(items))
	for i, s := range items {
		out[i] = s.Account
	}
	return out
}

// graph builds me - a - b - c plus attribute matches around me.
type graph struct {
	me, a, b, c     models.AccountRef
	sameTown        models.AccountRef
	sameTrade       models.AccountRef
	blockedByMe     models.AccountRef
	blockerOfMe     models.AccountRef
	unrelatedFarOff models.AccountRef
}

func buildGraph(t *testing.T, f *fixture) graph {
	t.Helper()
	g := graph{
		me:              f.user(t, "me", located("Lyon", "Plumbing")),
		a:               f.user(t, "a", located("Paris", "")),
		b:               f.user(t, "b", located("Lille", "")),
		c:               f.user(t, "c", located("Nantes", "")),
		sameTown:        f.user(t, "town", located(" lyon", "")),
		sameTrade:       f.user(t, "trade", located("Nice", "PLUMBING")),
		blockedByMe:     f.user(t, "blocked", located("Lyon", "Plumbing")),
		blockerOfMe:     f.user(t, "blocker", located("Lyon", "Plumbing")),
		unrelatedFarOff: f.user(t, "far", located("Brest", "Bakery")),
	}
	f.connect(t, g.me, g.a)
	f.connect(t, g.a, g.b)
	f.connect(t, g.c, g.b)
	require.NoError(t, f.engine.Blocks().Block(f.ctx, g.me, g.blockedByMe))
	require.NoError(t, f.engine.Blocks().Block(f.ctx, g.blockerOfMe, g.me))
	return g
}

func TestSuggestTiersInOrder(t *testing.T) {
	f := newFixture(t)
	g := buildGraph(t, f)

	got, err := f.engine.Suggestions().Suggest(f.ctx, g.me, models.KindIndividual, 10)
	require.NoError(t, err)

	assert.Equal(t, []models.AccountRef{g.b, g.c, g.sameTown, g.sameTrade}, accounts(got))
	assert.Equal(t, []relations.Reason{
		relations.ReasonSecondDegree,
		relations.ReasonThirdDegree,
		relations.ReasonSameLocation,
		relations.ReasonSameIndustry,
	}, []relations.Reason{got[0].Reason, got[1].Reason, got[2].Reason, got[3].Reason})

	for _, s := range got {
		require.NotNil(t, s.Profile)
		assert.Equal(t, s.Account, s.Profile.Ref)
	}
}

func TestSuggestNeverContainsSelfNeighborsOrBlocked(t *testing.T) {
	f := newFixture(t)
	g := buildGraph(t, f)

	for _, limit := range []int{1, 2, 3, 50} {
		got, err := f.engine.Suggestions().Suggest(f.ctx, g.me, "", limit)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), limit)
		refs := accounts(got)
		assert.NotContains(t, refs, g.me)
		assert.NotContains(t, refs, g.a)
		assert.NotContains(t, refs, g.blockedByMe)
		assert.NotContains(t, refs, g.blockerOfMe)
		assert.NotContains(t, refs, g.unrelatedFarOff)
	}

	// The same holds from the other side of the block.
	got, err := f.engine.Suggestions().Suggest(f.ctx, g.blockedByMe, "", 50)
	require.NoError(t, err)
	assert.NotContains(t, accounts(got), g.me)
}

func TestSuggestCapsEachTierToTheBudget(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "me")
	hub := f.user(t, "hub")
	f.connect(t, me, hub)
	for _, name := range []string{"p", "q", "r", "s"} {
		f.connect(t, hub, f.user(t, name))
	}

	got, err := f.engine.Suggestions().Suggest(f.ctx, me, "", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, s := range got {
		assert.Equal(t, relations.ReasonSecondDegree, s.Reason)
	}
}

func TestSuggestShufflesBeforeTruncating(t *testing.T) {
	var swaps int
	reverse := func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
			swaps++
		}
	}
	f := newFixture(t, relations.WithShuffle(reverse))
	g := buildGraph(t, f)

	got, err := f.engine.Suggestions().Suggest(f.ctx, g.me, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []models.AccountRef{g.sameTrade, g.sameTown, g.c, g.b}, accounts(got))
	assert.Equal(t, 2, swaps)
}

func TestSuggestForOrganization(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner", located("Lyon", ""))
	acme := f.org(t, owner, "Acme", func(o *models.Organization) { o.BusinessType = "Contractor" })
	rivalOwner := f.user(t, "rival-owner")
	rival := f.org(t, rivalOwner, "Rival", func(o *models.Organization) { o.BusinessType = "contractor " })
	f.org(t, rivalOwner, "Bakery", func(o *models.Organization) { o.BusinessType = "Retail" })
	f.user(t, "neighbour", located("Lyon", ""))

	_, err := f.engine.Suggestions().Suggest(f.ctx, owner, models.KindOrganization, 5)
	assert.True(t, errors.Is(err, relations.ErrValidation), "not acting for an organization yet")

	setActive(t, f, owner, acme.ID)
	got, err := f.engine.Suggestions().Suggest(f.ctx, owner, models.KindOrganization, 5)
	require.NoError(t, err)
	require.Len(t, got, 1, "the organization has no locality; only the business type matches")
	assert.Equal(t, rival, got[0].Account)
	assert.Equal(t, relations.ReasonSameBusinessRole, got[0].Reason)
	assert.Equal(t, "Rival", got[0].Profile.Name)
}

func TestSuggestBusinessRoleOnlyForOrganizations(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner")
	f.org(t, owner, "Acme", func(o *models.Organization) { o.BusinessType = "Contractor" })
	f.org(t, owner, "Other", func(o *models.Organization) { o.BusinessType = "Contractor" })

	got, err := f.engine.Suggestions().Suggest(f.ctx, owner, models.KindIndividual, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestValidation(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "me")

	_, err := f.engine.Suggestions().Suggest(f.ctx, me, "", 0)
	assert.True(t, errors.Is(err, relations.ErrValidation))
	_, err = f.engine.Suggestions().Suggest(f.ctx, models.AccountRef{}, "", 5)
	assert.True(t, errors.Is(err, relations.ErrValidation))
	_, err = f.engine.Suggestions().Suggest(f.ctx, me, "team", 5)
	assert.True(t, errors.Is(err, relations.ErrValidation))
}

type brokenDirectory struct {
	*memstore.Store
}

func (brokenDirectory) FindAccounts(context.Context, relations.AccountQuery) ([]models.AccountRef, error) {
	return nil, errors.New("directory offline")
}

func TestFailingTierIsSkipped(t *testing.T) {
	f := newFixture(t)
	g := buildGraph(t, f)
	engine := relations.NewEngine(brokenDirectory{f.store}, relations.WithShuffle(func(int, func(i, j int)) {}))

	got, err := engine.Suggestions().Suggest(f.ctx, g.me, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []models.AccountRef{g.b, g.c}, accounts(got))
}

type mapCache struct {
	mu          sync.Mutex
	entries     map[models.AccountRef]map[string][]relations.Suggestion
	dependents  map[models.AccountRef][]models.AccountRef
	invalidated []models.AccountRef
}

func newMapCache() *mapCache {
	return &mapCache{
		entries:    make(map[models.AccountRef]map[string][]relations.Suggestion),
		dependents: make(map[models.AccountRef][]models.AccountRef),
	}
}

func (c *mapCache) Get(_ context.Context, root models.AccountRef, key string) ([]relations.Suggestion, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, ok := c.entries[root][key]
	return items, ok, nil
}

func (c *mapCache) Set(_ context.Context, root models.AccountRef, key string, items []relations.Suggestion, dependsOn ...models.AccountRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[root] == nil {
		c.entries[root] = make(map[string][]relations.Suggestion)
	}
	c.entries[root][key] = items
	for _, ref := range dependsOn {
		c.dependents[ref] = append(c.dependents[ref], root)
	}
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, refs ...models.AccountRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ref := range refs {
		delete(c.entries, ref)
		for _, root := range c.dependents[ref] {
			delete(c.entries, root)
		}
		delete(c.dependents, ref)
	}
	c.invalidated = append(c.invalidated, refs...)
	return nil
}

func TestSuggestUsesCacheUntilInvalidated(t *testing.T) {
	cache := newMapCache()
	f := newFixture(t, relations.WithSuggestionCache(cache))
	me := f.user(t, "me", located("Lyon", ""))
	first := f.user(t, "first", located("Lyon", ""))

	got, err := f.engine.Suggestions().Suggest(f.ctx, me, "", 5)
	require.NoError(t, err)
	assert.Equal(t, []models.AccountRef{first}, accounts(got))

	// Not visible while the cached list is fresh.
	second := f.user(t, "second", located("Lyon", ""))
	got, err = f.engine.Suggestions().Suggest(f.ctx, me, "", 5)
	require.NoError(t, err)
	assert.Equal(t, []models.AccountRef{first}, accounts(got))

	// Connecting invalidates both parties.
	f.connect(t, me, first)
	assert.Contains(t, cache.invalidated, me)
	assert.Contains(t, cache.invalidated, first)

	got, err = f.engine.Suggestions().Suggest(f.ctx, me, "", 5)
	require.NoError(t, err)
	assert.Equal(t, []models.AccountRef{second}, accounts(got))
}

func TestOrganizationListsDropWhenTheActingUserConnects(t *testing.T) {
	cache := newMapCache()
	f := newFixture(t, relations.WithSuggestionCache(cache))
	owner := f.user(t, "owner")
	acme := f.org(t, owner, "Acme", func(o *models.Organization) { o.Locality = "Lyon" })
	local := f.user(t, "local", located("Lyon", ""))
	setActive(t, f, owner, acme.ID)

	got, err := f.engine.Suggestions().Suggest(f.ctx, owner, models.KindOrganization, 5)
	require.NoError(t, err)
	assert.Equal(t, []models.AccountRef{local}, accounts(got))

	// The owner connects personally; the organization's list must not keep suggesting them.
	f.connect(t, owner, local)
	got, err = f.engine.Suggestions().Suggest(f.ctx, owner, models.KindOrganization, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
