package relations

import (
	"context"
	"errors"
	"strings"

	"linkup/backend/internal/models"
)

// Placeholders used when a counterpart has neither a name nor a username.
const (
	placeholderFirstName = "Unknown"
	placeholderLastName  = "User"
)

// ContactSynchronizer mirrors connections between individuals into their address books.
type ContactSynchronizer struct {
	contacts ContactStore
	accounts AccountDirectory
}

// SyncContactsForConnection gives each individual endpoint of edge a contact
// for the other one. Existing contacts with the same email are left untouched.
func (s *ContactSynchronizer) SyncContactsForConnection(ctx context.Context, edge models.Connection) error {
	if !edge.BothIndividuals() {
		return nil
	}
	a, err := s.accounts.GetUser(ctx, edge.RequesterID)
	if err != nil {
		return err
	}
	b, err := s.accounts.GetUser(ctx, edge.RecipientID)
	if err != nil {
		return err
	}
	return errors.Join(s.mirror(ctx, a, b), s.mirror(ctx, b, a))
}

// mirror creates owner's contact for counterpart.
func (s *ContactSynchronizer) mirror(ctx context.Context, owner, counterpart *models.User) error {
	email := strings.TrimSpace(counterpart.Email)
	if email == "" {
		return nil
	}
	_, err := s.contacts.FindContactByEmail(ctx, owner.ID, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return err
	}

	platformID := counterpart.ID
	c := &models.Contact{
		OwnerID:        owner.ID,
		FirstName:      firstNonEmpty(counterpart.FirstName, counterpart.Username, placeholderFirstName),
		LastName:       firstNonEmpty(counterpart.LastName, counterpart.Username, placeholderLastName),
		Email:          email,
		Avatar:         counterpart.Avatar,
		PlatformUserID: &platformID,
		IsPlatformUser: true,
	}
	err = s.contacts.CreateContact(ctx, c)
	if errors.Is(err, ErrDuplicateKey) {
		return nil
	}
	return err
}

// TeardownContactsForPair deletes a's contact referencing b and b's contact referencing a.
func (s *ContactSynchronizer) TeardownContactsForPair(ctx context.Context, a, b models.AccountRef) error {
	if !a.IsIndividual() || !b.IsIndividual() {
		return nil
	}
	_, errA := s.contacts.DeleteContactsByPlatformUser(ctx, a.ID, b.ID)
	_, errB := s.contacts.DeleteContactsByPlatformUser(ctx, b.ID, a.ID)
	return errors.Join(errA, errB)
}

// ListContacts returns the address book of an individual.
func (e *Engine) ListContacts(ctx context.Context, owner models.AccountRef) ([]models.Contact, error) {
	const op = "ListContacts"
	if !owner.Valid() || !owner.IsIndividual() {
		return nil, validationError(op, "only individuals own contacts")
	}
	contacts, err := e.store.ListContacts(ctx, owner.ID)
	if err != nil {
		return nil, storeError(op, "contact", err)
	}
	return contacts, nil
}

// DeleteContact removes one of owner's contacts. When the contact mirrors a
// platform user, the connection with that user is removed as well and the
// mirrored contacts on both sides are torn down.
func (e *Engine) DeleteContact(ctx context.Context, owner models.AccountRef, contactID uint) error {
	const op = "DeleteContact"
	if !owner.Valid() || !owner.IsIndividual() || contactID == 0 {
		return validationError(op, "invalid contact or account id")
	}
	c, err := e.store.GetContact(ctx, contactID)
	if err != nil {
		return storeError(op, "contact", err)
	}
	if c.OwnerID != owner.ID {
		return permissionError(op, "not your contact")
	}
	if err := e.store.DeleteContact(ctx, contactID); err != nil {
		return storeError(op, "contact", err)
	}
	if c.PlatformUserID == nil || *c.PlatformUserID == owner.ID {
		return nil
	}

	other := models.IndividualRef(*c.PlatformUserID)
	if _, err := e.store.DeleteConnectionsBetween(ctx, owner, other); err != nil {
		return storeError(op, "connection", err)
	}
	e.effects.Run(ctx, []Effect{
		{Kind: EffectTeardownContacts, A: owner, B: other},
		{Kind: EffectInvalidateSuggestions, A: owner, B: other},
		{Kind: EffectNotify, A: owner, B: other, Event: EventConnectionRemoved},
	})
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
