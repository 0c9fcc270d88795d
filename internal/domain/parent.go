package domain

import (
	"fmt"
	"strings"
)

// ParentKind discriminates what a ticket admits to
type ParentKind string

const (
	ParentKindEvent    ParentKind = "event"
	ParentKindActivity ParentKind = "activity"
)

// IsValid checks if the kind is a known ParentKind
func (k ParentKind) IsValid() bool {
	switch k {
	case ParentKindEvent, ParentKindActivity:
		return true
	}
	return false
}

// String returns the string representation of ParentKind
func (k ParentKind) String() string {
	return string(k)
}

// ParseParentKind parses a kind, accepting the plural route form ("events")
func ParseParentKind(s string) (ParentKind, error) {
	var k ParentKind
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "event", "events":
		k = ParentKindEvent
	case "activity", "activities":
		k = ParentKindActivity
	}
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidParentKind, s)
	}
	return k, nil
}

// ParentRef identifies exactly one event or activity
type ParentRef struct {
	Kind ParentKind `json:"kind"`
	ID   string     `json:"id"`
}

// EventRef references an event
func EventRef(id string) ParentRef {
	return ParentRef{Kind: ParentKindEvent, ID: id}
}

// ActivityRef references an activity
func ActivityRef(id string) ParentRef {
	return ParentRef{Kind: ParentKindActivity, ID: id}
}

// Validate checks that the reference names a known kind and a non-empty id
func (r ParentRef) Validate() error {
	if !r.Kind.IsValid() {
		return ErrInvalidParentKind
	}
	if strings.TrimSpace(r.ID) == "" {
		return ErrInvalidParentID
	}
	return nil
}

// IsEvent reports whether the reference is an event
func (r ParentRef) IsEvent() bool {
	return r.Kind == ParentKindEvent
}

// EventID returns the id when the reference is an event, else ""
func (r ParentRef) EventID() string {
	if r.Kind == ParentKindEvent {
		return r.ID
	}
	return ""
}

// ActivityID returns the id when the reference is an activity, else ""
func (r ParentRef) ActivityID() string {
	if r.Kind == ParentKindActivity {
		return r.ID
	}
	return ""
}

func (r ParentRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// Parent is the event or activity metadata the ticketing core needs
type Parent struct {
	Ref             ParentRef `json:"ref"`
	Title           string    `json:"title"`
	Venue           string    `json:"venue"`
	OrganizationID  string    `json:"organization_id,omitempty"`
	CreatorUserID   string    `json:"creator_user_id,omitempty"`
	AuthorizedStaff []string  `json:"authorized_staff,omitempty"`
	Placeholder     bool      `json:"-"`
}

// PlaceholderParent stands in when the parent cannot be resolved at issuance time
func PlaceholderParent(ref ParentRef, title, venue string) *Parent {
	return &Parent{Ref: ref, Title: title, Venue: venue, Placeholder: true}
}

// IsOwner reports whether identity owns the parent, either as organization or creator
func (p *Parent) IsOwner(identity string) bool {
	if identity == "" {
		return false
	}
	return identity == p.OrganizationID || identity == p.CreatorUserID
}

// CanScan reports whether identity may verify entry for this parent
func (p *Parent) CanScan(identity string) bool {
	if p.IsOwner(identity) {
		return true
	}
	for _, staff := range p.AuthorizedStaff {
		if staff == identity {
			return true
		}
	}
	return false
}
