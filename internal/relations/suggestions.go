package relations

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"linkup/backend/internal/metrics"
	"linkup/backend/internal/models"
)

// Reason explains why an account was suggested.
type Reason string

const (
	ReasonSecondDegree     Reason = "connection of connection"
	ReasonThirdDegree      Reason = "connection of connection of connection"
	ReasonSameLocation     Reason = "same location"
	ReasonSameIndustry     Reason = "same industry"
	ReasonSameBusinessRole Reason = "same business role"
)

// Suggestion is a candidate account for a new connection.
type Suggestion struct {
	Account models.AccountRef `json:"account"`
	Reason  Reason            `json:"reason"`
	Profile *models.Profile   `json:"profile,omitempty"`
}

// SuggestionEngine ranks accounts the caller might want to connect with.
// It walks the accepted-connection graph up to three hops from the root
// and falls back to profile attributes when the graph runs dry.
type SuggestionEngine struct {
	store   Store
	blocks  *BlockGuard
	cache   SuggestionCache
	group   singleflight.Group
	shuffle func(n int, swap func(i, j int))
	log     *slog.Logger
}

// Suggest returns up to limit suggestions for self. When kind is
// organization the traversal is rooted at the organization self currently
// represents.
func (s *SuggestionEngine) Suggest(ctx context.Context, self models.AccountRef, kind models.AccountKind, limit int) ([]Suggestion, error) {
	const op = "Suggest"
	if !self.Valid() {
		return nil, validationError(op, "invalid account reference")
	}
	if limit <= 0 {
		return nil, validationError(op, "limit must be positive")
	}
	root, err := s.resolveRoot(ctx, self, kind)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s:%d", self, limit)
	if s.cache != nil {
		items, ok, err := s.cache.Get(ctx, root, key)
		switch {
		case err != nil:
			metrics.SuggestionCache.WithLabelValues("error").Inc()
			s.log.Warn("suggestion cache read failed", "root", root.String(), "error", err)
		case ok:
			metrics.SuggestionCache.WithLabelValues("hit").Inc()
			return items, nil
		default:
			metrics.SuggestionCache.WithLabelValues("miss").Inc()
		}
	}

	v, err, _ := s.group.Do(root.String()+"|"+key, func() (any, error) {
		items, err := s.compute(ctx, self, root, limit)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			// An organization's list also excludes the acting user's own connections.
			var dependsOn []models.AccountRef
			if self != root {
				dependsOn = append(dependsOn, self)
			}
			if err := s.cache.Set(ctx, root, key, items, dependsOn...); err != nil {
				s.log.Warn("suggestion cache write failed", "root", root.String(), "error", err)
			}
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Suggestion), nil
}

func (s *SuggestionEngine) resolveRoot(ctx context.Context, self models.AccountRef, kind models.AccountKind) (models.AccountRef, error) {
	const op = "Suggest"
	if self.Kind == models.KindOrganization || kind == "" || kind == models.KindIndividual {
		return self, nil
	}
	if kind != models.KindOrganization {
		return models.AccountRef{}, validationError(op, "unknown account kind")
	}
	user, err := s.store.GetUser(ctx, self.ID)
	if err != nil {
		return models.AccountRef{}, storeError(op, "account", err)
	}
	if user.ActiveOrganizationID == nil {
		return models.AccountRef{}, validationError(op, "not acting on behalf of an organization")
	}
	return models.OrganizationRef(*user.ActiveOrganizationID), nil
}

func (s *SuggestionEngine) compute(ctx context.Context, self, root models.AccountRef, limit int) ([]Suggestion, error) {
	rootProfile, err := s.store.Resolve(ctx, root)
	if err != nil {
		return nil, storeError("Suggest", "account", err)
	}

	seen := newRefSet(self, root)
	degree1 := s.tier(ctx, "degree1", func() ([]models.AccountRef, error) {
		return s.neighbors(ctx, []models.AccountRef{root})
	})
	seen.add(degree1...)
	if self != root {
		seen.add(s.tier(ctx, "self_degree1", func() ([]models.AccountRef, error) {
			return s.neighbors(ctx, []models.AccountRef{self})
		})...)
	}
	for _, ref := range []models.AccountRef{self, root} {
		seen.add(s.tier(ctx, "blocked", func() ([]models.AccountRef, error) {
			return s.blocks.hidden(ctx, ref)
		})...)
	}

	results := make([]Suggestion, 0, limit)
	take := func(candidates []models.AccountRef, reason Reason) []models.AccountRef {
		var added []models.AccountRef
		for _, ref := range candidates {
			if len(results) >= limit {
				break
			}
			if seen.has(ref) {
				continue
			}
			seen.add(ref)
			results = append(results, Suggestion{Account: ref, Reason: reason})
			added = append(added, ref)
		}
		return added
	}

	degree2 := take(s.tier(ctx, "degree2", func() ([]models.AccountRef, error) {
		return s.neighbors(ctx, degree1)
	}), ReasonSecondDegree)

	if len(results) < limit {
		take(s.tier(ctx, "degree3", func() ([]models.AccountRef, error) {
			return s.neighbors(ctx, degree2)
		}), ReasonThirdDegree)
	}

	if len(results) < limit && rootProfile.Locality != "" {
		take(s.tier(ctx, "locality", func() ([]models.AccountRef, error) {
			return s.store.FindAccounts(ctx, AccountQuery{
				Locality: rootProfile.Locality,
				Exclude:  seen.list(),
				Limit:    limit - len(results),
			})
		}), ReasonSameLocation)
	}

	if len(results) < limit && rootProfile.Trade != "" {
		take(s.tier(ctx, "trade", func() ([]models.AccountRef, error) {
			return s.store.FindAccounts(ctx, AccountQuery{
				Trade:   rootProfile.Trade,
				Exclude: seen.list(),
				Limit:   limit - len(results),
			})
		}), ReasonSameIndustry)
	}

	if len(results) < limit && root.Kind == models.KindOrganization && rootProfile.BusinessType != "" {
		take(s.tier(ctx, "business_type", func() ([]models.AccountRef, error) {
			return s.store.FindAccounts(ctx, AccountQuery{
				Kind:         models.KindOrganization,
				BusinessType: rootProfile.BusinessType,
				Exclude:      seen.list(),
				Limit:        limit - len(results),
			})
		}), ReasonSameBusinessRole)
	}

	s.shuffle(len(results), func(i, j int) { results[i], results[j] = results[j], results[i] })
	if len(results) > limit {
		results = results[:limit]
	}

	s.annotate(ctx, results)
	return results, nil
}

// tier runs one step of the traversal. A failing tier contributes nothing.
func (s *SuggestionEngine) tier(ctx context.Context, name string, fn func() ([]models.AccountRef, error)) []models.AccountRef {
	refs, err := fn()
	if err != nil {
		metrics.SuggestionTierFailures.WithLabelValues(name).Inc()
		s.log.Warn("suggestion tier failed", "tier", name, "error", err)
		return nil
	}
	metrics.SuggestionTierResults.WithLabelValues(name).Observe(float64(len(refs)))
	return refs
}

// neighbors returns the accounts with an accepted connection to any of refs,
// excluding refs themselves, in a stable order.
func (s *SuggestionEngine) neighbors(ctx context.Context, refs []models.AccountRef) ([]models.AccountRef, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	for _, ref := range refs {
		if !ref.Valid() {
			return nil, fmt.Errorf("malformed account reference %q", ref)
		}
	}
	edges, _, err := s.store.FindConnections(ctx, ConnectionQuery{
		AnyOf:    refs,
		Statuses: []models.RelationStatus{models.StatusAccepted},
	})
	if err != nil {
		return nil, err
	}
	from := newRefSet(refs...)
	out := newRefSet()
	for _, c := range edges {
		for _, ref := range []models.AccountRef{c.Requester(), c.Recipient()} {
			if !from.has(ref) {
				out.add(ref)
			}
		}
	}
	return out.list(), nil
}

func (s *SuggestionEngine) annotate(ctx context.Context, results []Suggestion) {
	if len(results) == 0 {
		return
	}
	refs := make([]models.AccountRef, len(results))
	for i, r := range results {
		refs[i] = r.Account
	}
	profiles, err := s.store.ResolveMany(ctx, refs)
	if err != nil {
		s.log.Warn("suggestion profiles unavailable", "error", err)
		return
	}
	for i := range results {
		if p, ok := profiles[results[i].Account]; ok {
			public := p.Public()
			results[i].Profile = &public
		}
	}
}

// refSet is an insertion-ordered set of account references.
type refSet struct {
	index map[models.AccountRef]struct{}
	order []models.AccountRef
}

func newRefSet(refs ...models.AccountRef) *refSet {
	s := &refSet{index: make(map[models.AccountRef]struct{})}
	s.add(refs...)
	return s
}

func (s *refSet) add(refs ...models.AccountRef) {
	for _, r := range refs {
		if _, ok := s.index[r]; ok {
			continue
		}
		s.index[r] = struct{}{}
		s.order = append(s.order, r)
	}
}

func (s *refSet) has(r models.AccountRef) bool {
	_, ok := s.index[r]
	return ok
}

// list returns the members sorted by kind and id.
func (s *refSet) list() []models.AccountRef {
	out := append([]models.AccountRef(nil), s.order...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return strings.Compare(string(out[i].Kind), string(out[j].Kind)) < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}
