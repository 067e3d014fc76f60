package relations

import (
	"time"

	"linkup/backend/internal/models"
)

// Write says what the engine must persist after a decision.
type Write int

const (
	WriteNone Write = iota
	WriteCreate
	WriteUpdate
)

// EffectKind names a derived side effect of a transition.
type EffectKind string

const (
	EffectEnsureFollow          EffectKind = "ensure_follow"
	EffectSyncContacts          EffectKind = "sync_contacts"
	EffectTeardownContacts      EffectKind = "teardown_contacts"
	EffectInvalidateSuggestions EffectKind = "invalidate_suggestions"
	EffectNotify                EffectKind = "notify"
)

// Effect is a side effect to run once the transition's write has committed.
// Effects are best-effort: a failing effect never undoes the write.
type Effect struct {
	Kind       EffectKind
	Connection models.Connection
	// A and B are the pair the effect concerns.
	A, B  models.AccountRef
	Event EventType
}

// Transition is the outcome of a state machine decision.
type Transition struct {
	Write   Write
	Edge    models.Connection
	Effects []Effect
}

// DecideSend decides what a connection request from requester to recipient
// does, given the edge already stored for the pair (nil when none).
func DecideSend(existing *models.Connection, requester, recipient models.AccountRef, now time.Time) (Transition, error) {
	const op = "SendRequest"
	if !requester.Valid() || !recipient.Valid() {
		return Transition{}, validationError(op, "invalid account reference")
	}
	if requester == recipient {
		return Transition{}, validationError(op, "cannot send a connection request to yourself")
	}

	if existing == nil {
		edge := models.NewConnection(requester, recipient, now)
		return Transition{
			Write: WriteCreate,
			Edge:  edge,
			Effects: []Effect{
				notifyEffect(edge, EventRequestSent, requester, recipient),
			},
		}, nil
	}

	edge := *existing
	switch edge.Status {
	case models.StatusPending:
		if edge.Requester() == requester {
			return Transition{}, conflictError(op, "connection already requested")
		}
		// The recipient of a pending request asked for the same thing: accept it.
		edge.Status = models.StatusAccepted
		edge.UpdatedAt = now
		return Transition{
			Write:   WriteUpdate,
			Edge:    edge,
			Effects: acceptEffects(edge, requester),
		}, nil
	case models.StatusAccepted:
		return Transition{}, conflictError(op, "already connected")
	case models.StatusRejected:
		edge.SetParties(requester, recipient)
		edge.Status = models.StatusPending
		edge.UpdatedAt = now
		return Transition{
			Write: WriteUpdate,
			Edge:  edge,
			Effects: []Effect{
				notifyEffect(edge, EventRequestSent, requester, recipient),
			},
		}, nil
	}
	return Transition{}, conflictError(op, "connection is in an unknown state")
}

// DecideAccept decides an accept by actor on edge.
func DecideAccept(edge models.Connection, actor models.AccountRef, now time.Time) (Transition, error) {
	const op = "AcceptRequest"
	if edge.Recipient() != actor {
		return Transition{}, permissionError(op, "only the recipient can accept this request")
	}
	switch edge.Status {
	case models.StatusAccepted:
		return Transition{}, conflictError(op, "request already accepted")
	case models.StatusRejected:
		return Transition{}, conflictError(op, "request was rejected")
	}
	edge.Status = models.StatusAccepted
	edge.UpdatedAt = now
	return Transition{
		Write:   WriteUpdate,
		Edge:    edge,
		Effects: acceptEffects(edge, actor),
	}, nil
}

// DecideReject decides a reject by actor on edge. Only pending edges can be rejected.
func DecideReject(edge models.Connection, actor models.AccountRef, now time.Time) (Transition, error) {
	const op = "RejectRequest"
	if edge.Recipient() != actor {
		return Transition{}, permissionError(op, "only the recipient can reject this request")
	}
	switch edge.Status {
	case models.StatusAccepted:
		return Transition{}, conflictError(op, "an accepted connection cannot be rejected")
	case models.StatusRejected:
		return Transition{}, conflictError(op, "request already rejected")
	}
	edge.Status = models.StatusRejected
	edge.UpdatedAt = now
	return Transition{
		Write: WriteUpdate,
		Edge:  edge,
		Effects: []Effect{
			notifyEffect(edge, EventRequestRejected, actor, edge.Requester()),
		},
	}, nil
}

// DecideRemove checks that actor may delete edge. Either endpoint may, in any status.
func DecideRemove(edge models.Connection, actor models.AccountRef) (Transition, error) {
	if !edge.Involves(actor) {
		return Transition{}, permissionError("RemoveConnection", "not a party to this connection")
	}
	other := edge.Other(actor)
	return Transition{
		Edge: edge,
		Effects: []Effect{
			{Kind: EffectInvalidateSuggestions, Connection: edge, A: actor, B: other},
			notifyEffect(edge, EventConnectionRemoved, actor, other),
		},
	}, nil
}

func acceptEffects(edge models.Connection, actor models.AccountRef) []Effect {
	other := edge.Other(actor)
	effects := []Effect{
		{Kind: EffectEnsureFollow, Connection: edge, A: edge.Requester(), B: edge.Recipient()},
	}
	if edge.BothIndividuals() {
		effects = append(effects, Effect{Kind: EffectSyncContacts, Connection: edge, A: edge.Requester(), B: edge.Recipient()})
	}
	return append(effects,
		Effect{Kind: EffectInvalidateSuggestions, Connection: edge, A: actor, B: other},
		notifyEffect(edge, EventRequestAccepted, actor, other),
	)
}

func notifyEffect(edge models.Connection, t EventType, actor, subject models.AccountRef) Effect {
	return Effect{Kind: EffectNotify, Connection: edge, A: actor, B: subject, Event: t}
}
