package relations

import (
	"context"
	"errors"

	"linkup/backend/internal/models"
)

// FollowSynchronizer derives follow edges from accepted connections.
type FollowSynchronizer struct {
	follows FollowStore
	conns   ConnectionStore
}

// EnsureMutualFollow makes sure both endpoints of an accepted connection follow
// each other. Existing edges are upgraded to accepted, never downgraded.
func (s *FollowSynchronizer) EnsureMutualFollow(ctx context.Context, edge models.Connection) error {
	if edge.Status != models.StatusAccepted {
		return nil
	}
	a, b := edge.Requester(), edge.Recipient()
	if err := s.ensure(ctx, a, b); err != nil {
		return err
	}
	if err := s.ensure(ctx, b, a); err != nil {
		return err
	}
	if edge.IsFollowing || edge.ID == 0 {
		return nil
	}
	err := s.conns.SetConnectionFollowing(ctx, edge.ID, true)
	if errors.Is(err, ErrRecordNotFound) {
		// Removed in the meantime; the follows stay.
		return nil
	}
	return err
}

func (s *FollowSynchronizer) ensure(ctx context.Context, follower, following models.AccountRef) error {
	existing, err := s.follows.FindFollow(ctx, follower, following)
	if errors.Is(err, ErrRecordNotFound) {
		f := models.NewFollow(follower, following, models.StatusAccepted)
		err = s.follows.CreateFollow(ctx, &f)
		if !errors.Is(err, ErrDuplicateKey) {
			return err
		}
		// Someone else created it first; fall through and upgrade theirs.
		existing, err = s.follows.FindFollow(ctx, follower, following)
	}
	if err != nil {
		return err
	}
	if existing.Status == models.StatusAccepted {
		return nil
	}
	existing.Status = models.StatusAccepted
	return s.follows.SaveFollow(ctx, existing)
}

// Follow makes follower follow following. The two accounts must be connected.
func (e *Engine) Follow(ctx context.Context, follower, following models.AccountRef) (*models.Follow, error) {
	const op = "Follow"
	if !follower.Valid() || !following.Valid() {
		return nil, validationError(op, "invalid account reference")
	}
	if follower == following {
		return nil, validationError(op, "cannot follow yourself")
	}
	blocked, err := e.blocks.IsBlocked(ctx, follower, following)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, conflictError(op, "permission denied")
	}

	conn, err := e.store.FindConnectionBetween(ctx, follower, following)
	if errors.Is(err, ErrRecordNotFound) || (err == nil && conn.Status != models.StatusAccepted) {
		return nil, conflictError(op, "following requires an accepted connection")
	}
	if err != nil {
		return nil, storeError(op, "connection", err)
	}

	f, err := e.store.FindFollow(ctx, follower, following)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		nf := models.NewFollow(follower, following, models.StatusAccepted)
		if err := e.store.CreateFollow(ctx, &nf); err != nil {
			return nil, storeError(op, "follow", err)
		}
		f = &nf
	case err != nil:
		return nil, storeError(op, "follow", err)
	case f.Status == models.StatusAccepted:
		return nil, conflictError(op, "already following")
	default:
		f.Status = models.StatusAccepted
		if err := e.store.SaveFollow(ctx, f); err != nil {
			return nil, storeError(op, "follow", err)
		}
	}

	mutual, err := e.follows.isFollowing(ctx, following, follower)
	if err != nil {
		return nil, storeError(op, "follow", err)
	}
	if mutual && !conn.IsFollowing {
		if err := e.store.SetConnectionFollowing(ctx, conn.ID, true); err != nil && !errors.Is(err, ErrRecordNotFound) {
			return nil, storeError(op, "connection", err)
		}
	}

	e.effects.Run(ctx, []Effect{notifyEffect(*conn, EventFollowed, follower, following)})
	return f, nil
}

// Unfollow removes the follow edge from follower to following.
func (e *Engine) Unfollow(ctx context.Context, follower, following models.AccountRef) error {
	const op = "Unfollow"
	if !follower.Valid() || !following.Valid() {
		return validationError(op, "invalid account reference")
	}
	if follower == following {
		return validationError(op, "cannot unfollow yourself")
	}
	n, err := e.store.DeleteFollow(ctx, follower, following)
	if err != nil {
		return storeError(op, "follow", err)
	}
	if n == 0 {
		return notFoundError(op, "not following this account")
	}

	conn, err := e.store.FindConnectionBetween(ctx, follower, following)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		conn = &models.Connection{}
	case err != nil:
		return storeError(op, "connection", err)
	case conn.IsFollowing:
		if err := e.store.SetConnectionFollowing(ctx, conn.ID, false); err != nil && !errors.Is(err, ErrRecordNotFound) {
			return storeError(op, "connection", err)
		}
	}

	e.effects.Run(ctx, []Effect{notifyEffect(*conn, EventUnfollowed, follower, following)})
	return nil
}

// FollowCounts returns how many accounts follow ref and how many ref follows.
func (e *Engine) FollowCounts(ctx context.Context, ref models.AccountRef) (followers, following int64, err error) {
	const op = "FollowCounts"
	followers, err = e.store.CountFollows(ctx, FollowQuery{Following: &ref, Status: models.StatusAccepted})
	if err != nil {
		return 0, 0, storeError(op, "follow", err)
	}
	following, err = e.store.CountFollows(ctx, FollowQuery{Follower: &ref, Status: models.StatusAccepted})
	if err != nil {
		return 0, 0, storeError(op, "follow", err)
	}
	return followers, following, nil
}

func (s *FollowSynchronizer) isFollowing(ctx context.Context, follower, following models.AccountRef) (bool, error) {
	f, err := s.follows.FindFollow(ctx, follower, following)
	if errors.Is(err, ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return f.Status == models.StatusAccepted, nil
}
