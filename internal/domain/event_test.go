package domain

import "testing"

func TestNewLockEvent(t *testing.T) {
	event, err := NewLockEvent("dlock:job-42", "worker-1", EventAcquired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if event.Key != "dlock:job-42" {
		t.Errorf("expected key 'dlock:job-42', got %q", event.Key)
	}
	if event.Type != EventAcquired {
		t.Errorf("expected type 'acquired', got %q", event.Type)
	}
	if event.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestNewLockEvent_Invalid(t *testing.T) {
	if _, err := NewLockEvent("", "worker-1", EventAcquired); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := NewLockEvent("job", "worker-1", EventType("stolen")); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestEventType_Valid(t *testing.T) {
	for _, typ := range []EventType{EventAcquired, EventTimeout, EventReleased, EventNotOwner, EventRenewed, EventLeaseLost} {
		if !typ.Valid() {
			t.Errorf("expected %q to be valid", typ)
		}
	}
	if EventType("").Valid() {
		t.Error("expected empty type to be invalid")
	}
}
