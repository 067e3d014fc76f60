package models

import (
	"fmt"
	"strconv"
	"strings"
)

// AccountKind discriminates the two kinds of account that can hold relationships.
type AccountKind string

const (
	KindIndividual   AccountKind = "individual"
	KindOrganization AccountKind = "organization"
)

// Valid reports whether k is one of the known account kinds.
func (k AccountKind) Valid() bool {
	return k == KindIndividual || k == KindOrganization
}

// ParseAccountKind accepts the canonical kind names plus the short forms used in URLs.
func ParseAccountKind(s string) (AccountKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "individual", "user", "users", "individuals":
		return KindIndividual, nil
	case "organization", "org", "orgs", "organizations":
		return KindOrganization, nil
	}
	return "", fmt.Errorf("unknown account kind %q", s)
}

// AccountRef identifies one side of an edge. Edges never reference a bare id.
type AccountRef struct {
	ID   uint        `json:"id"`
	Kind AccountKind `json:"kind"`
}

// IndividualRef returns a reference to an individual account.
func IndividualRef(id uint) AccountRef {
	return AccountRef{ID: id, Kind: KindIndividual}
}

// OrganizationRef returns a reference to an organization account.
func OrganizationRef(id uint) AccountRef {
	return AccountRef{ID: id, Kind: KindOrganization}
}

// Valid reports whether the reference carries a non-zero id and a known kind.
func (r AccountRef) Valid() bool {
	return r.ID != 0 && r.Kind.Valid()
}

// IsIndividual reports whether r points at an individual account.
func (r AccountRef) IsIndividual() bool {
	return r.Kind == KindIndividual
}

func (r AccountRef) String() string {
	return string(r.Kind) + ":" + strconv.FormatUint(uint64(r.ID), 10)
}

// less orders refs by kind first, then id.
func (r AccountRef) less(o AccountRef) bool {
	if r.Kind != o.Kind {
		return r.Kind < o.Kind
	}
	return r.ID < o.ID
}

// PairKey returns a key for the unordered pair {a, b}. PairKey(a, b) == PairKey(b, a).
func PairKey(a, b AccountRef) string {
	if b.less(a) {
		a, b = b, a
	}
	return a.String() + "|" + b.String()
}

// SamePair reports whether {a, b} and {c, d} denote the same unordered pair.
func SamePair(a, b, c, d AccountRef) bool {
	return (a == c && b == d) || (a == d && b == c)
}

// Profile is the directory view of an account, regardless of its kind.
type Profile struct {
	Ref          AccountRef `json:"account"`
	Username     string     `json:"username,omitempty"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	Name         string     `json:"name,omitempty"`
	Email        string     `json:"email,omitempty"`
	Locality     string     `json:"locality,omitempty"`
	Trade        string     `json:"trade,omitempty"`
	BusinessType string     `json:"business_type,omitempty"`
	Avatar       string     `json:"avatar,omitempty"`
}

// Public returns the profile as other accounts may see it, without the email.
func (p Profile) Public() Profile {
	p.Email = ""
	return p
}

// DisplayName picks the most readable name available for the profile.
func (p Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	full := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if full != "" {
		return full
	}
	return p.Username
}

// BlockList is the set of accounts blocked by the account that owns it.
// It is stored on the owning account's row.
type BlockList []AccountRef

// Contains reports whether ref is in the list.
func (l BlockList) Contains(ref AccountRef) bool {
	for _, r := range l {
		if r == ref {
			return true
		}
	}
	return false
}

// Without returns a copy of the list with ref removed.
func (l BlockList) Without(ref AccountRef) BlockList {
	out := make(BlockList, 0, len(l))
	for _, r := range l {
		if r != ref {
			out = append(out, r)
		}
	}
	return out
}
