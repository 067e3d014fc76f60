package relations

import (
	"context"

	"linkup/backend/internal/metrics"
	"linkup/backend/internal/models"
)

// BlockGuard manages block lists. Blocks are stored on the blocker only but
// are always read symmetrically.
type BlockGuard struct {
	store   Store
	effects *Executor
}

// Block adds target to blocker's list and removes every connection and follow
// between the two, plus the contacts they mirrored.
func (g *BlockGuard) Block(ctx context.Context, blocker, target models.AccountRef) error {
	const op = "Block"
	if !blocker.Valid() || !target.Valid() {
		return validationError(op, "invalid account reference")
	}
	if blocker == target {
		return validationError(op, "cannot block yourself")
	}
	if _, err := g.store.Resolve(ctx, target); err != nil {
		return storeError(op, "account", err)
	}

	list, err := g.store.BlockList(ctx, blocker)
	if err != nil {
		return storeError(op, "account", err)
	}
	if list.Contains(target) {
		return conflictError(op, "account already blocked")
	}
	next := append(append(models.BlockList{}, list...), target)
	if err := g.store.SetBlockList(ctx, blocker, next); err != nil {
		return storeError(op, "account", err)
	}

	if _, err := g.store.DeleteConnectionsBetween(ctx, blocker, target); err != nil {
		return storeError(op, "connection", err)
	}
	if _, err := g.store.DeleteFollow(ctx, blocker, target); err != nil {
		return storeError(op, "follow", err)
	}
	if _, err := g.store.DeleteFollow(ctx, target, blocker); err != nil {
		return storeError(op, "follow", err)
	}
	metrics.Transitions.WithLabelValues(op, "ok").Inc()

	g.effects.Run(ctx, []Effect{
		{Kind: EffectTeardownContacts, A: blocker, B: target},
		{Kind: EffectInvalidateSuggestions, A: blocker, B: target},
		{Kind: EffectNotify, A: blocker, B: target, Event: EventBlocked},
	})
	return nil
}

// Unblock removes target from blocker's list. Nothing removed by the block is restored.
func (g *BlockGuard) Unblock(ctx context.Context, blocker, target models.AccountRef) error {
	const op = "Unblock"
	if !blocker.Valid() || !target.Valid() {
		return validationError(op, "invalid account reference")
	}
	if blocker == target {
		return validationError(op, "cannot unblock yourself")
	}
	list, err := g.store.BlockList(ctx, blocker)
	if err != nil {
		return storeError(op, "account", err)
	}
	if !list.Contains(target) {
		return notFoundError(op, "account is not blocked")
	}
	if err := g.store.SetBlockList(ctx, blocker, list.Without(target)); err != nil {
		return storeError(op, "account", err)
	}
	metrics.Transitions.WithLabelValues(op, "ok").Inc()

	g.effects.Run(ctx, []Effect{
		{Kind: EffectInvalidateSuggestions, A: blocker, B: target},
		{Kind: EffectNotify, A: blocker, B: target, Event: EventUnblocked},
	})
	return nil
}

// IsBlocked reports whether a blocked b or b blocked a.
func (g *BlockGuard) IsBlocked(ctx context.Context, a, b models.AccountRef) (bool, error) {
	const op = "IsBlocked"
	la, err := g.store.BlockList(ctx, a)
	if err != nil {
		return false, storeError(op, "account", err)
	}
	if la.Contains(b) {
		return true, nil
	}
	lb, err := g.store.BlockList(ctx, b)
	if err != nil {
		return false, storeError(op, "account", err)
	}
	return lb.Contains(a), nil
}

// ListBlocked returns the profiles of the accounts owner has blocked, in block order.
func (g *BlockGuard) ListBlocked(ctx context.Context, owner models.AccountRef) ([]models.Profile, error) {
	const op = "ListBlocked"
	if !owner.Valid() {
		return nil, validationError(op, "invalid account reference")
	}
	list, err := g.store.BlockList(ctx, owner)
	if err != nil {
		return nil, storeError(op, "account", err)
	}
	profiles, err := g.store.ResolveMany(ctx, list)
	if err != nil {
		return nil, storeError(op, "account", err)
	}
	out := make([]models.Profile, 0, len(list))
	for _, ref := range list {
		if p, ok := profiles[ref]; ok {
			out = append(out, p.Public())
		}
	}
	return out, nil
}

// hidden returns every account that blocked ref or that ref blocked.
func (g *BlockGuard) hidden(ctx context.Context, ref models.AccountRef) ([]models.AccountRef, error) {
	list, err := g.store.BlockList(ctx, ref)
	if err != nil {
		return nil, err
	}
	blockers, err := g.store.BlockersOf(ctx, ref)
	if err != nil {
		return nil, err
	}
	return append(append([]models.AccountRef{}, list...), blockers...), nil
}
