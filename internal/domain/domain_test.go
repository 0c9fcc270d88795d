package domain

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseParentKind(t *testing.T) {
	tests := []struct {
		in      string
		want    ParentKind
		wantErr bool
	}{
		{"event", ParentKindEvent, false},
		{"events", ParentKindEvent, false},
		{"Activity", ParentKindActivity, false},
		{"activities", ParentKindActivity, false},
		{"concert", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseParentKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseParentKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseParentKind(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParentRef_Accessors(t *testing.T) {
	ev := EventRef("e1")
	if ev.EventID() != "e1" || ev.ActivityID() != "" {
		t.Errorf("event ref accessors wrong: %+v", ev)
	}
	act := ActivityRef("a1")
	if act.ActivityID() != "a1" || act.EventID() != "" {
		t.Errorf("activity ref accessors wrong: %+v", act)
	}
	if ev == EventRef("e2") || ev == ActivityRef("e1") {
		t.Error("refs with different kind or id compare equal")
	}
}

func TestParent_CanScan(t *testing.T) {
	p := &Parent{OrganizationID: "org-1", CreatorUserID: "user-9", AuthorizedStaff: []string{"staff-1"}}

	tests := []struct {
		identity string
		want     bool
	}{
		{"org-1", true},
		{"user-9", true},
		{"staff-1", true},
		{"stranger", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := p.CanScan(tt.identity); got != tt.want {
			t.Errorf("CanScan(%q) = %v, want %v", tt.identity, got, tt.want)
		}
	}
	if p.IsOwner("staff-1") {
		t.Error("staff must not count as owner")
	}
}

func TestAttendee_Admissions(t *testing.T) {
	attendees := []*Attendee{
		{CheckedIn: true},
		{CheckedIn: true, Tickets: map[string]int{"General": 2, "VIP": 1}},
		{CheckedIn: false},
		{CheckedIn: true, Tickets: map[string]int{"General": -1}},
	}
	if got := CountAdmissions(attendees); got != 4 {
		t.Errorf("CountAdmissions() = %d, want 4", got)
	}
}

func TestDenialReason_HTTPStatus(t *testing.T) {
	tests := []struct {
		reason DenialReason
		want   int
	}{
		{ReasonInvalidRequest, http.StatusBadRequest},
		{ReasonTicketNotFound, http.StatusNotFound},
		{ReasonWrongEvent, http.StatusBadRequest},
		{ReasonAlreadyUsed, http.StatusConflict},
		{ReasonCancelled, http.StatusGone},
		{ReasonWrongDate, http.StatusBadRequest},
		{ReasonUnauthorized, http.StatusForbidden},
		{ReasonDuplicateHolder, http.StatusConflict},
		{ReasonBookingFullyUsed, http.StatusConflict},
		{ReasonRateLimited, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			if got := tt.reason.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
			if tt.reason.DefaultMessage() == "Entry denied" {
				t.Errorf("missing message for %s", tt.reason)
			}
		})
	}
}

func TestEntryDenied(t *testing.T) {
	usedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	denied := DenyAlreadyUsed(&Ticket{UsedAt: &usedAt, UsedBy: "staff-1"})

	var err error = denied
	got, ok := AsEntryDenied(errors.Join(errors.New("context"), err))
	if !ok || got.Reason != ReasonAlreadyUsed {
		t.Fatalf("AsEntryDenied() = %v, %v", got, ok)
	}
	details := got.Details()
	if details["used_at"] != "2025-03-01T10:00:00Z" || details["used_by"] != "staff-1" {
		t.Errorf("Details() = %v", details)
	}
	if Deny(ReasonWrongEvent).Details() != nil {
		t.Error("expected no details for WRONG_EVENT")
	}
}

func TestErrorClassifiers(t *testing.T) {
	if !IsNotFoundError(ErrTicketNotFound) || IsNotFoundError(ErrInvalidAmount) {
		t.Error("IsNotFoundError misclassified")
	}
	if !IsValidationError(ErrInvalidQuantity) || IsValidationError(ErrTicketNotFound) {
		t.Error("IsValidationError misclassified")
	}
	if !IsConflictError(ErrInvalidTicketStatus) {
		t.Error("IsConflictError misclassified")
	}
	if !IsForbiddenError(ErrNotParentStaff) {
		t.Error("IsForbiddenError misclassified")
	}
}

func TestTicketOutboxEvent(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ticket := &Ticket{
		ID:           "t1",
		TicketNumber: "TKT-A-B-C",
		BookingID:    "b1",
		Parent:       EventRef("e1"),
		Status:       TicketStatusActive,
		Amount:       decimal.RequireFromString("333.4"),
	}

	msg, err := TicketOutboxEvent(TicketEventIssued, ticket, "ticket-events", at)
	if err != nil {
		t.Fatalf("TicketOutboxEvent() error = %v", err)
	}
	if msg.PartitionKey != "b1" || msg.AggregateID != "t1" || msg.Status != OutboxStatusPending {
		t.Errorf("unexpected message: %+v", msg)
	}

	var payload TicketEvent
	if err := msg.GetPayload(&payload); err != nil {
		t.Fatalf("GetPayload() error = %v", err)
	}
	if payload.Amount != "333.40" || payload.EventType != TicketEventIssued || payload.ParentID != "e1" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestOutboxMessage_Lifecycle(t *testing.T) {
	msg, err := NewOutboxMessage("ticket", "t1", "ticket.issued", "ticket-events", "", map[string]string{"a": "b"})
	if err != nil {
		t.Fatal(err)
	}
	if msg.PartitionKey != "t1" {
		t.Errorf("PartitionKey = %q, want aggregate id", msg.PartitionKey)
	}

	msg.MarkAsFailed("broker down")
	if !msg.CanRetry() || msg.RetryCount != 1 {
		t.Errorf("expected retryable failure: %+v", msg)
	}
	msg.RetryCount = msg.MaxRetries
	if msg.CanRetry() {
		t.Error("exhausted message must not retry")
	}

	msg.MarkAsPublished()
	if msg.Status != OutboxStatusPublished || msg.PublishedAt == nil {
		t.Errorf("not published: %+v", msg)
	}
}
