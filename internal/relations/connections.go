package relations

import (
	"context"
	"errors"
	"time"

	"linkup/backend/internal/metrics"
	"linkup/backend/internal/models"
)

// ConnectionState is the relationship between two accounts as seen by the first one.
type ConnectionState string

const (
	StateNone            ConnectionState = "none"
	StateSelf            ConnectionState = "self"
	StatePendingOutgoing ConnectionState = "pending_outgoing"
	StatePendingIncoming ConnectionState = "pending_incoming"
	StateConnected       ConnectionState = "connected"
	StateRejected        ConnectionState = "rejected"
	StateBlocked         ConnectionState = "blocked"
)

// ConnectionView is a connection edge annotated for the account listing it.
type ConnectionView struct {
	Connection  models.Connection `json:"connection"`
	Direction   Direction         `json:"direction"`
	Counterpart *models.Profile   `json:"counterpart,omitempty"`
}

// ConnectionPage is one page of a connection listing.
type ConnectionPage struct {
	Items []ConnectionView
	Total int64
}

// ActingAs resolves the account a user operates as: itself, or the
// organization it currently represents when kind is organization.
func (e *Engine) ActingAs(ctx context.Context, userID uint, kind models.AccountKind) (models.AccountRef, error) {
	const op = "ActingAs"
	if userID == 0 {
		return models.AccountRef{}, validationError(op, "missing account id")
	}
	if kind == "" || kind == models.KindIndividual {
		return models.IndividualRef(userID), nil
	}
	if kind != models.KindOrganization {
		return models.AccountRef{}, validationError(op, "unknown account kind")
	}
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return models.AccountRef{}, storeError(op, "account", err)
	}
	if user.ActiveOrganizationID == nil {
		return models.AccountRef{}, validationError(op, "not acting on behalf of an organization")
	}
	org, err := e.store.GetOrganization(ctx, *user.ActiveOrganizationID)
	if err != nil {
		return models.AccountRef{}, storeError(op, "organization", err)
	}
	if org.OwnerID != user.ID {
		return models.AccountRef{}, permissionError(op, "not allowed to act for this organization")
	}
	return org.Ref(), nil
}

// SendRequest sends a connection request from requester to recipient.
// A pending request in the opposite direction is accepted instead, and a
// previously rejected request is sent again.
func (e *Engine) SendRequest(ctx context.Context, requester, recipient models.AccountRef) (*models.Connection, error) {
	const op = "SendRequest"
	edge, err := e.sendRequest(ctx, requester, recipient)
	metrics.Transitions.WithLabelValues(op, metrics.Outcome(err)).Inc()
	return edge, err
}

func (e *Engine) sendRequest(ctx context.Context, requester, recipient models.AccountRef) (*models.Connection, error) {
	const op = "SendRequest"
	if !requester.Valid() || !recipient.Valid() {
		return nil, validationError(op, "invalid account reference")
	}
	if requester == recipient {
		return nil, validationError(op, "cannot send a connection request to yourself")
	}
	for _, ref := range []models.AccountRef{requester, recipient} {
		if _, err := e.store.Resolve(ctx, ref); err != nil {
			return nil, storeError(op, "account", err)
		}
	}

	blocked, err := e.blocks.IsBlocked(ctx, requester, recipient)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, conflictError(op, "permission denied")
	}

	existing, err := e.store.FindConnectionBetween(ctx, requester, recipient)
	if errors.Is(err, ErrRecordNotFound) {
		existing, err = nil, nil
	}
	if err != nil {
		return nil, storeError(op, "connection", err)
	}

	tr, err := DecideSend(existing, requester, recipient, e.now())
	if err != nil {
		return nil, err
	}
	edge := tr.Edge
	switch tr.Write {
	case WriteCreate:
		if err := e.store.CreateConnection(ctx, &edge); err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				// Lost a race with a concurrent request for the same pair.
				return nil, &Error{Op: op, Kind: KindConflict, Msg: "a connection between these accounts already exists", Err: err}
			}
			return nil, storeError(op, "connection", err)
		}
	case WriteUpdate:
		if err := e.store.SaveConnection(ctx, &edge); err != nil {
			return nil, storeError(op, "connection", err)
		}
	}
	e.effects.Run(ctx, withConnectionID(tr.Effects, edge.ID))
	return &edge, nil
}

// AcceptRequest accepts the pending request edgeID on behalf of actor.
func (e *Engine) AcceptRequest(ctx context.Context, edgeID uint, actor models.AccountRef) (*models.Connection, error) {
	const op = "AcceptRequest"
	edge, err := e.applyTransition(ctx, op, edgeID, actor, DecideAccept)
	metrics.Transitions.WithLabelValues(op, metrics.Outcome(err)).Inc()
	return edge, err
}

// RejectRequest rejects the pending request edgeID on behalf of actor.
func (e *Engine) RejectRequest(ctx context.Context, edgeID uint, actor models.AccountRef) (*models.Connection, error) {
	const op = "RejectRequest"
	edge, err := e.applyTransition(ctx, op, edgeID, actor, DecideReject)
	metrics.Transitions.WithLabelValues(op, metrics.Outcome(err)).Inc()
	return edge, err
}

type decideFunc func(models.Connection, models.AccountRef, time.Time) (Transition, error)

func (e *Engine) applyTransition(ctx context.Context, op string, edgeID uint, actor models.AccountRef, decide decideFunc) (*models.Connection, error) {
	if edgeID == 0 || !actor.Valid() {
		return nil, validationError(op, "invalid connection or account id")
	}
	current, err := e.store.GetConnection(ctx, edgeID)
	if err != nil {
		return nil, storeError(op, "connection", err)
	}
	tr, err := decide(*current, actor, e.now())
	if err != nil {
		return nil, err
	}
	edge := tr.Edge
	if err := e.store.SaveConnection(ctx, &edge); err != nil {
		return nil, storeError(op, "connection", err)
	}
	e.effects.Run(ctx, tr.Effects)
	return &edge, nil
}

// RemoveConnection deletes edgeID. Either endpoint may remove it, whatever its status.
// Derived follows and contacts are left in place.
func (e *Engine) RemoveConnection(ctx context.Context, edgeID uint, actor models.AccountRef) error {
	const op = "RemoveConnection"
	if edgeID == 0 || !actor.Valid() {
		return validationError(op, "invalid connection or account id")
	}
	edge, err := e.store.GetConnection(ctx, edgeID)
	if err != nil {
		return storeError(op, "connection", err)
	}
	tr, err := DecideRemove(*edge, actor)
	if err != nil {
		return err
	}
	if err := e.store.DeleteConnection(ctx, edgeID); err != nil {
		return storeError(op, "connection", err)
	}
	metrics.Transitions.WithLabelValues(op, "ok").Inc()
	e.effects.Run(ctx, tr.Effects)
	return nil
}

// GetConnection returns edgeID if actor is one of its endpoints.
func (e *Engine) GetConnection(ctx context.Context, edgeID uint, actor models.AccountRef) (*models.Connection, error) {
	const op = "GetConnection"
	edge, err := e.store.GetConnection(ctx, edgeID)
	if err != nil {
		return nil, storeError(op, "connection", err)
	}
	if !edge.Involves(actor) {
		return nil, permissionError(op, "not a party to this connection")
	}
	return edge, nil
}

// ConnectionStatus reports how a relates to b. Blocking in either direction wins.
func (e *Engine) ConnectionStatus(ctx context.Context, a, b models.AccountRef) (ConnectionState, *models.Connection, error) {
	const op = "ConnectionStatus"
	if !a.Valid() || !b.Valid() {
		return "", nil, validationError(op, "invalid account reference")
	}
	if a == b {
		return StateSelf, nil, nil
	}
	blocked, err := e.blocks.IsBlocked(ctx, a, b)
	if err != nil {
		return "", nil, err
	}
	if blocked {
		return StateBlocked, nil, nil
	}
	edge, err := e.store.FindConnectionBetween(ctx, a, b)
	if errors.Is(err, ErrRecordNotFound) {
		return StateNone, nil, nil
	}
	if err != nil {
		return "", nil, storeError(op, "connection", err)
	}
	switch edge.Status {
	case models.StatusAccepted:
		return StateConnected, edge, nil
	case models.StatusRejected:
		return StateRejected, edge, nil
	}
	if edge.Requester() == a {
		return StatePendingOutgoing, edge, nil
	}
	return StatePendingIncoming, edge, nil
}

// ListConnections lists account's edges filtered by q's status and direction.
func (e *Engine) ListConnections(ctx context.Context, account models.AccountRef, q ConnectionQuery) (*ConnectionPage, error) {
	const op = "ListConnections"
	if !account.Valid() {
		return nil, validationError(op, "invalid account reference")
	}
	if _, ok := ParseDirection(string(q.Direction)); !ok {
		return nil, validationError(op, "direction must be incoming or outgoing")
	}
	for _, s := range q.Statuses {
		if !s.Valid() {
			return nil, validationError(op, "unknown status "+string(s))
		}
	}
	q.Party = &account
	q.AnyOf = nil

	edges, total, err := e.store.FindConnections(ctx, q)
	if err != nil {
		return nil, storeError(op, "connection", err)
	}

	others := make([]models.AccountRef, 0, len(edges))
	for _, c := range edges {
		others = append(others, c.Other(account))
	}
	profiles, err := e.store.ResolveMany(ctx, others)
	if err != nil {
		return nil, storeError(op, "account", err)
	}

	page := &ConnectionPage{Items: make([]ConnectionView, 0, len(edges)), Total: total}
	for _, c := range edges {
		view := ConnectionView{Connection: c, Direction: DirectionOutgoing}
		if c.Recipient() == account {
			view.Direction = DirectionIncoming
		}
		if p, ok := profiles[c.Other(account)]; ok {
			public := p.Public()
			view.Counterpart = &public
		}
		page.Items = append(page.Items, view)
	}
	return page, nil
}

// PendingRequests lists the requests waiting for account's answer.
func (e *Engine) PendingRequests(ctx context.Context, account models.AccountRef, offset, limit int) (*ConnectionPage, error) {
	return e.ListConnections(ctx, account, ConnectionQuery{
		Direction: DirectionIncoming,
		Statuses:  []models.RelationStatus{models.StatusPending},
		Offset:    offset,
		Limit:     limit,
	})
}

// withConnectionID stamps effects decided before the edge had an id.
func withConnectionID(effects []Effect, id uint) []Effect {
	for i := range effects {
		effects[i].Connection.ID = id
	}
	return effects
}
