package autotrader

import (
	"context"
	"errors"
	"testing"

	"github.com/mpr89/wheeltrader/pkg/ledger/model"
	"github.com/mpr89/wheeltrader/pkg/venue"
)

func TestCancel_PendingNeverContactsVenue(t *testing.T) {
	store := newFakeOrderStore()
	id, _ := store.Insert(context.Background(), pendingOrderFixture())

	sessions := &fakeSessions{sess: &fakeSession{}}
	events := &capturedEvents{}
	svc := newTestService(store, sessions, WithEventPublisher(events))

	result, err := svc.Cancel(context.Background(), id)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Warning != "" {
		t.Errorf("pending cancel produced warning %q", result.Warning)
	}
	if sessions.acquires != 0 {
		t.Error("pending cancel must not acquire a venue session")
	}

	stored := store.mustGet(id)
	if stored.Status != model.OrderStatusCanceled {
		t.Errorf("status = %s, want canceled", stored.Status)
	}
	if !stored.Executed {
		t.Error("executed flag not set, canceled orders must leave the processing queue")
	}
	if len(events.events) != 1 || events.events[0].EventType != model.EventTypeCancelRequested {
		t.Errorf("expected one CancelRequested event, got %+v", events.events)
	}
}

func TestCancel_ConfirmedByVenue(t *testing.T) {
	store := newFakeOrderStore()
	id, _ := store.Insert(context.Background(), processingOrderFixture("601"))

	sess := &fakeSession{statuses: map[string]venue.BrokerStatus{
		"601": {Status: "Cancelled", Remaining: d("1")},
	}}
	svc := newTestService(store, &fakeSessions{sess: sess})

	result, err := svc.Cancel(context.Background(), id)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if !result.Success || result.Warning != "" {
		t.Fatalf("confirmed cancel should be clean, got %+v", result)
	}
	if sess.cancelCalls != 1 {
		t.Errorf("cancel calls = %d, want 1", sess.cancelCalls)
	}

	stored := store.mustGet(id)
	if stored.Status != model.OrderStatusCanceled {
		t.Errorf("status = %s, want canceled", stored.Status)
	}
	if stored.BrokerStatus != "Cancelled" {
		t.Errorf("broker_status = %q, want Cancelled", stored.BrokerStatus)
	}
}

func TestCancel_RequestedButNotConfirmedCarriesWarning(t *testing.T) {
	store := newFakeOrderStore()
	id, _ := store.Insert(context.Background(), processingOrderFixture("602"))

	// Venue still reports Submitted after the cancel request.
	sess := &fakeSession{statuses: map[string]venue.BrokerStatus{
		"602": {Status: "Submitted"},
	}}
	svc := newTestService(store, &fakeSessions{sess: sess})

	result, err := svc.Cancel(context.Background(), id)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Warning == "" {
		t.Error("unconfirmed cancel must carry a warning")
	}

	stored := store.mustGet(id)
	if stored.Status != model.OrderStatusCanceled {
		t.Errorf("status = %s, want canceled locally regardless", stored.Status)
	}
	if stored.BrokerStatus != "PendingCancel" {
		t.Errorf("broker_status = %q, want PendingCancel", stored.BrokerStatus)
	}
	if stored.Warning == "" {
		t.Error("warning not persisted to the ledger")
	}
}

func TestCancel_VenueFailureForcesLocalCancel(t *testing.T) {
	store := newFakeOrderStore()
	id, _ := store.Insert(context.Background(), processingOrderFixture("603"))

	sess := &fakeSession{cancelErr: errors.New("venue rejected cancel")}
	events := &capturedEvents{}
	svc := newTestService(store, &fakeSessions{sess: sess}, WithEventPublisher(events))

	result, err := svc.Cancel(context.Background(), id)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("venue failure must still converge, got %+v", result)
	}
	if result.Warning == "" || result.VenueError == "" {
		t.Errorf("forced cancel must report warning and venue error, got %+v", result)
	}

	stored := store.mustGet(id)
	if stored.Status != model.OrderStatusCanceled {
		t.Errorf("status = %s, want canceled", stored.Status)
	}
	if len(events.events) != 1 || events.events[0].EventType != model.EventTypeCancelForced {
		t.Errorf("expected one CancelForced event, got %+v", events.events)
	}
}

func TestCancel_SessionFailureForcesLocalCancel(t *testing.T) {
	store := newFakeOrderStore()
	id, _ := store.Insert(context.Background(), processingOrderFixture("604"))

	sessions := &fakeSessions{acquireErr: errors.New("gateway unreachable")}
	svc := newTestService(store, sessions)

	result, err := svc.Cancel(context.Background(), id)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if !result.Success || result.Warning == "" {
		t.Fatalf("expected forced local cancel with warning, got %+v", result)
	}
	if got := store.mustGet(id).Status; got != model.OrderStatusCanceled {
		t.Errorf("status = %s, want canceled", got)
	}
}

func TestCancel_TerminalOrderIsInvalidState(t *testing.T) {
	store := newFakeOrderStore()
	order := pendingOrderFixture()
	order.Status = model.OrderStatusExecuted
	order.Executed = true
	id, _ := store.Insert(context.Background(), order)

	svc := newTestService(store, &fakeSessions{sess: &fakeSession{}})

	result, err := svc.Cancel(context.Background(), id)
	if !IsInvalidState(err) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
	if result.Success {
		t.Error("terminal order cancel reported success")
	}
	if got := store.mustGet(id).Status; got != model.OrderStatusExecuted {
		t.Errorf("terminal order was mutated to %s", got)
	}
}

func TestCancel_UnknownOrderIsNotFound(t *testing.T) {
	svc := newTestService(newFakeOrderStore(), &fakeSessions{sess: &fakeSession{}})

	_, err := svc.Cancel(context.Background(), 999)
	if !IsOrderNotFound(err) {
		t.Fatalf("expected order not found, got %v", err)
	}
}
