package autotrader

import (
	"context"
	"testing"

	"github.com/mpr89/wheeltrader/pkg/ledger/model"
	"github.com/mpr89/wheeltrader/pkg/venue"
)

func processingOrderFixture(brokerID string) *model.Order {
	o := pendingOrderFixture()
	o.Status = model.OrderStatusProcessing
	o.Executed = true
	o.BrokerOrderID = brokerID
	o.BrokerStatus = "Submitted"
	return o
}

func TestReconcile_FilledBecomesExecuted(t *testing.T) {
	store := newFakeOrderStore()
	id, _ := store.Insert(context.Background(), processingOrderFixture("101"))

	sess := &fakeSession{statuses: map[string]venue.BrokerStatus{
		"101": {Status: "Filled", Filled: d("1"), AvgFillPrice: d("2.05")},
	}}
	events := &capturedEvents{}
	svc := newTestService(store, &fakeSessions{sess: sess}, WithEventPublisher(events))

	result, err := svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("updated count = %d, want 1", result.UpdatedCount)
	}

	stored := store.mustGet(id)
	if stored.Status != model.OrderStatusExecuted {
		t.Errorf("status = %s, want executed", stored.Status)
	}
	if !stored.Executed {
		t.Error("executed flag not set on terminal transition")
	}
	if stored.BrokerStatus != "Filled" {
		t.Errorf("broker_status = %q, want Filled", stored.BrokerStatus)
	}
	if !stored.AvgFillPrice.Equal(d("2.05")) {
		t.Errorf("avg_fill_price = %s, want 2.05", stored.AvgFillPrice)
	}
	if len(events.events) != 1 || events.events[0].EventType != model.EventTypeStatusChange {
		t.Errorf("expected one StatusChange event, got %+v", events.events)
	}
}

func TestReconcile_CancelledBecomesCanceled(t *testing.T) {
	store := newFakeOrderStore()
	for _, brokerStatus := range []string{"Cancelled", "ApiCancelled"} {
		id, _ := store.Insert(context.Background(), processingOrderFixture("c-"+brokerStatus))
		sess := &fakeSession{statuses: map[string]venue.BrokerStatus{
			"c-" + brokerStatus: {Status: brokerStatus},
		}}
		svc := newTestService(store, &fakeSessions{sess: sess})

		if _, err := svc.Reconcile(context.Background()); err != nil {
			t.Fatalf("Reconcile(%s) returned error: %v", brokerStatus, err)
		}
		stored := store.mustGet(id)
		if stored.Status != model.OrderStatusCanceled {
			t.Errorf("venue %s: status = %s, want canceled", brokerStatus, stored.Status)
		}
		if !stored.Executed {
			t.Errorf("venue %s: executed flag not set", brokerStatus)
		}
		store.Delete(context.Background(), id)
	}
}

func TestReconcile_SecondSweepWritesNothing(t *testing.T) {
	store := newFakeOrderStore()
	store.Insert(context.Background(), processingOrderFixture("201"))

	sess := &fakeSession{statuses: map[string]venue.BrokerStatus{
		"201": {Status: "Filled", Filled: d("1"), AvgFillPrice: d("1.90")},
	}}
	svc := newTestService(store, &fakeSessions{sess: sess})

	first, err := svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if first.UpdatedCount != 1 {
		t.Fatalf("first sweep updated %d, want 1", first.UpdatedCount)
	}

	second, err := svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second.UpdatedCount != 0 {
		t.Errorf("second sweep updated %d, want 0", second.UpdatedCount)
	}
}

func TestReconcile_UnchangedSubmittedSkipsWrite(t *testing.T) {
	store := newFakeOrderStore()
	id, _ := store.Insert(context.Background(), processingOrderFixture("301"))

	sess := &fakeSession{statuses: map[string]venue.BrokerStatus{
		"301": {Status: "Submitted", Remaining: d("1")},
	}}
	svc := newTestService(store, &fakeSessions{sess: sess})

	result, err := svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if result.UpdatedCount != 0 {
		t.Errorf("updated count = %d, want 0 for unchanged venue state", result.UpdatedCount)
	}
	if got := store.mustGet(id).Status; got != model.OrderStatusProcessing {
		t.Errorf("status = %s, want processing untouched", got)
	}
}

func TestReconcile_PartialFillRefreshesDetails(t *testing.T) {
	store := newFakeOrderStore()
	id, _ := store.Insert(context.Background(), processingOrderFixture("401"))

	sess := &fakeSession{statuses: map[string]venue.BrokerStatus{
		"401": {Status: "Submitted", Filled: d("0.5"), Remaining: d("0.5"), AvgFillPrice: d("2.00")},
	}}
	svc := newTestService(store, &fakeSessions{sess: sess})

	result, err := svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("updated count = %d, want 1 for partial fill", result.UpdatedCount)
	}
	stored := store.mustGet(id)
	if stored.Status != model.OrderStatusProcessing {
		t.Errorf("status = %s, partial fill must stay processing", stored.Status)
	}
	if !stored.Filled.Equal(d("0.5")) {
		t.Errorf("filled = %s, want 0.5", stored.Filled)
	}
}

func TestReconcile_NotFoundFlagsWithoutWrite(t *testing.T) {
	store := newFakeOrderStore()
	id, _ := store.Insert(context.Background(), processingOrderFixture("501"))

	// The fake returns {Status: "NotFound"} for unknown broker ids.
	sess := &fakeSession{statuses: map[string]venue.BrokerStatus{}}
	svc := newTestService(store, &fakeSessions{sess: sess})

	result, err := svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if result.UpdatedCount != 0 {
		t.Errorf("updated count = %d, want 0", result.UpdatedCount)
	}
	if len(result.MismatchedOrderIDs) != 1 || result.MismatchedOrderIDs[0] != id {
		t.Fatalf("mismatched ids = %v, want [%d]", result.MismatchedOrderIDs, id)
	}
	stored := store.mustGet(id)
	if stored.Status != model.OrderStatusProcessing || stored.BrokerStatus != "Submitted" {
		t.Errorf("mismatched order was mutated: %+v", stored)
	}
}

func TestReconcile_PendingOrdersAreSkipped(t *testing.T) {
	store := newFakeOrderStore()
	store.Insert(context.Background(), pendingOrderFixture())

	sess := &fakeSession{}
	svc := newTestService(store, &fakeSessions{sess: sess})

	result, err := svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if result.UpdatedCount != 0 || len(result.MismatchedOrderIDs) != 0 {
		t.Errorf("pending order produced activity: %+v", result)
	}
	if sess.statusCalls != 0 {
		t.Errorf("status calls = %d, pending orders must not hit the venue", sess.statusCalls)
	}
}

func TestReconcile_EmptyLedgerSkipsSession(t *testing.T) {
	store := newFakeOrderStore()
	sessions := &fakeSessions{sess: &fakeSession{}}
	svc := newTestService(store, sessions)

	if _, err := svc.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if sessions.acquires != 0 {
		t.Errorf("acquires = %d, want 0 when nothing needs reconciling", sessions.acquires)
	}
}
