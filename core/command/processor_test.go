package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shuttleops/dispatchboard/core/boarderr"
	"github.com/shuttleops/dispatchboard/core/model"
)

type fakeAPI struct {
	mu          sync.Mutex
	assignCalls []AssignRequest
	statusCalls []StatusRequest
	priceCalls  []PricingRequest
	smsCalls    []SMSRequest
	failAssign  error
	failStatus  error
	recipients  int
}

func (f *fakeAPI) AssignDriver(_ context.Context, req AssignRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAssign != nil {
		return f.failAssign
	}
	f.assignCalls = append(f.assignCalls, req)
	return nil
}

func (f *fakeAPI) UpdateBookingStatus(_ context.Context, req StatusRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStatus != nil {
		return f.failStatus
	}
	f.statusCalls = append(f.statusCalls, req)
	return nil
}

func (f *fakeAPI) UpdateBookingPricing(_ context.Context, req PricingRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls = append(f.priceCalls, req)
	return nil
}

func (f *fakeAPI) SendBulkSMS(_ context.Context, req SMSRequest) (SMSReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.smsCalls = append(f.smsCalls, req)
	return SMSReceipt{TotalRecipients: f.recipients}, nil
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}

func newTestProcessor(t *testing.T, api MutationAPI) *Processor {
	t.Helper()
	p, err := NewProcessor(api, NewUndoStack(0), nil, nopLogger{})
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	return p
}

func driver(id, name string) model.Driver {
	return model.Driver{ID: id, Name: name, Phone: "000", Email: id + "@fleet"}
}

func TestAssignUndoRoundTrip(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProcessor(t, api)
	b := model.Booking{ID: "b1"} // unassigned

	if err := p.Assign(context.Background(), []model.Booking{b}, driver("d1", "Pat"), NotifyOptions{}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(api.assignCalls) != 1 || api.assignCalls[0].DriverID != "d1" {
		t.Fatalf("expected one assign call for d1, got %+v", api.assignCalls)
	}
	if p.UndoDepth() != 1 {
		t.Fatalf("undo depth = %d, want 1", p.UndoDepth())
	}

	if err := p.Undo(context.Background()); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if len(api.assignCalls) != 2 {
		t.Fatalf("undo should issue a second mutation")
	}
	restore := api.assignCalls[1]
	if restore.DriverID != "" || restore.BookingIDs[0] != "b1" {
		t.Fatalf("undo should unassign b1, got %+v", restore)
	}
	if p.UndoDepth() != 0 {
		t.Fatalf("undo depth after undo = %d, want 0", p.UndoDepth())
	}
}

func TestUndoIsLIFO(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProcessor(t, api)
	ctx := context.Background()

	b := model.Booking{ID: "b1"}
	if err := p.Assign(ctx, []model.Booking{b}, driver("d1", "Pat"), NotifyOptions{}); err != nil {
		t.Fatalf("assign d1: %v", err)
	}
	// The feed would reconcile to d1; simulate the refreshed record.
	b.Assignment = &model.Assignment{DriverID: "d1", DriverName: "Pat"}
	if err := p.Assign(ctx, []model.Booking{b}, driver("d2", "Sam"), NotifyOptions{}); err != nil {
		t.Fatalf("assign d2: %v", err)
	}

	if err := p.Undo(ctx); err != nil {
		t.Fatalf("first undo: %v", err)
	}
	first := api.assignCalls[len(api.assignCalls)-1]
	if first.DriverID != "d1" {
		t.Fatalf("first undo should restore d1, got %q", first.DriverID)
	}

	if err := p.Undo(ctx); err != nil {
		t.Fatalf("second undo: %v", err)
	}
	second := api.assignCalls[len(api.assignCalls)-1]
	if second.DriverID != "" {
		t.Fatalf("second undo should restore unassigned, got %q", second.DriverID)
	}
}

func TestAssignSameDriverIsNoOp(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProcessor(t, api)
	b := model.Booking{ID: "b1", Assignment: &model.Assignment{DriverID: "d1"}}

	if err := p.Assign(context.Background(), []model.Booking{b}, driver("d1", "Pat"), NotifyOptions{}); err != nil {
		t.Fatalf("no-op assign returned error: %v", err)
	}
	if len(api.assignCalls) != 0 {
		t.Fatalf("no mutation should be issued for a same-driver assign")
	}
	if p.UndoDepth() != 0 {
		t.Fatalf("no undo history should be consumed")
	}
}

func TestUnassignUnassignedIsNoOp(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProcessor(t, api)
	b := model.Booking{ID: "b1"}

	if err := p.Unassign(context.Background(), []model.Booking{b}, NotifyOptions{}); err != nil {
		t.Fatalf("no-op unassign returned error: %v", err)
	}
	if len(api.assignCalls) != 0 || p.UndoDepth() != 0 {
		t.Fatalf("unassigning an unassigned booking must not mutate")
	}
}

func TestAssignFailureRollsBackItsOwnEntries(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProcessor(t, api)
	ctx := context.Background()

	// A prior successful mutation leaves an entry on the stack.
	if err := p.Assign(ctx, []model.Booking{{ID: "b1"}}, driver("d1", "Pat"), NotifyOptions{}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	api.failAssign = errors.New("boom")
	err := p.Assign(ctx, []model.Booking{{ID: "b2"}}, driver("d2", "Sam"), NotifyOptions{})
	var mf *boarderr.MutationFailure
	if !errors.As(err, &mf) {
		t.Fatalf("expected MutationFailure, got %v", err)
	}
	if p.UndoDepth() != 1 {
		t.Fatalf("failed mutation must remove only its own entry, depth = %d", p.UndoDepth())
	}

	// The surviving entry still restores b1.
	api.failAssign = nil
	if err := p.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	last := api.assignCalls[len(api.assignCalls)-1]
	if last.BookingIDs[0] != "b1" {
		t.Fatalf("undo restored %v, want b1", last.BookingIDs)
	}
}

func TestUndoFailureRestoresEntry(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProcessor(t, api)
	ctx := context.Background()

	if err := p.Assign(ctx, []model.Booking{{ID: "b1"}}, driver("d1", "Pat"), NotifyOptions{}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	api.failAssign = errors.New("network down")
	err := p.Undo(ctx)
	var uf *boarderr.UndoFailure
	if !errors.As(err, &uf) {
		t.Fatalf("expected UndoFailure, got %v", err)
	}
	if p.UndoDepth() != 1 {
		t.Fatalf("failed undo must push the entry back, depth = %d", p.UndoDepth())
	}

	api.failAssign = nil
	if err := p.Undo(ctx); err != nil {
		t.Fatalf("retried undo: %v", err)
	}
	if p.UndoDepth() != 0 {
		t.Fatalf("retry should consume the restored entry")
	}
}

func TestUndoOnEmptyStack(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProcessor(t, api)
	if err := p.Undo(context.Background()); err != nil {
		t.Fatalf("undo on empty stack should be a warning, got %v", err)
	}
	if len(api.assignCalls) != 0 {
		t.Fatalf("undo on empty stack must not mutate")
	}
}

func TestBulkStatusMissingReasonIssuesNoCalls(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProcessor(t, api)
	selection := []model.Booking{
		{ID: "b1", Status: model.StatusConfirmed},
		{ID: "b2", Status: model.StatusAssigned},
	}
	err := p.ApplyStatus(context.Background(), selection, model.StatusCancelled, "", "")
	var verr *boarderr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(api.statusCalls) != 0 {
		t.Fatalf("no status mutation may be issued without the required reason")
	}

	if err := p.ApplyStatus(context.Background(), selection, model.StatusCancelled, "no_show", ""); err != nil {
		t.Fatalf("with reason code: %v", err)
	}
	if len(api.statusCalls) != 2 {
		t.Fatalf("expected 2 status calls, got %d", len(api.statusCalls))
	}
}

func TestApplyPricingValidation(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProcessor(t, api)
	err := p.ApplyPricing(context.Background(), PricingRequest{
		BookingID: "b1", BaseCents: -100, TotalCents: 100, ReasonCode: "adjustment",
	})
	var verr *boarderr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("negative amount should be a ValidationError, got %v", err)
	}
	if len(api.priceCalls) != 0 {
		t.Fatalf("invalid pricing must not reach the API")
	}

	if err := p.ApplyPricing(context.Background(), PricingRequest{
		BookingID: "b1", BaseCents: 9000, GSTCents: 900, TotalCents: 9900, ReasonCode: "late_change",
	}); err != nil {
		t.Fatalf("valid pricing: %v", err)
	}
}

func TestSendSMS(t *testing.T) {
	api := &fakeAPI{recipients: 3}
	p := newTestProcessor(t, api)
	receipt, err := p.SendSMS(context.Background(), SMSRequest{
		BookingIDs: []string{"b1", "b2", "b3"},
		Message:    "Driver is 10 minutes away",
		Recipient:  "passenger",
	})
	if err != nil {
		t.Fatalf("send sms: %v", err)
	}
	if receipt.TotalRecipients != 3 {
		t.Fatalf("recipients = %d, want 3", receipt.TotalRecipients)
	}
	if _, err := p.SendSMS(context.Background(), SMSRequest{Recipient: "passenger"}); err == nil {
		t.Fatalf("empty message/ids must be rejected")
	}
}

func TestUndoStackBound(t *testing.T) {
	s := NewUndoStack(3)
	for i := 0; i < 5; i++ {
		s.Push(UndoEntry{CommandID: "c", BookingID: string(rune('a' + i))})
	}
	if s.Len() != 3 {
		t.Fatalf("stack should be bounded to 3, got %d", s.Len())
	}
	e, _ := s.Pop()
	if e.BookingID != "e" {
		t.Fatalf("most recent entry should pop first, got %s", e.BookingID)
	}
}
