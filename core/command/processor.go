// Package command executes assignment, status, pricing and SMS mutations
// against the external mutation API, with optimistic undo for assignments.
package command

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shuttleops/dispatchboard/core/boarderr"
	"github.com/shuttleops/dispatchboard/core/command/audit"
	"github.com/shuttleops/dispatchboard/core/events"
	"github.com/shuttleops/dispatchboard/core/logger"
	"github.com/shuttleops/dispatchboard/core/metrics"
	"github.com/shuttleops/dispatchboard/core/model"
	"github.com/shuttleops/dispatchboard/core/status"
	"github.com/shuttleops/dispatchboard/internal/eventbus"
)

// Processor issues mutations and maintains the undo history. Mutations on
// the same booking id are serialized; disjoint bookings proceed
// independently. Drag-and-drop and click-driven assignment both go through
// Assign; there is no separate path.
type Processor struct {
	api     MutationAPI
	undo    *UndoStack
	log     logger.Logger
	bus     eventbus.EventBus
	sink    metrics.MutationSink
	store   audit.LogStore
	refresh func()
	actor   string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewProcessor creates a processor. bus and log may be nil-equivalent
// implementations but api must be set; undo nil gets a default-depth stack.
func NewProcessor(api MutationAPI, undo *UndoStack, bus eventbus.EventBus, log logger.Logger) (*Processor, error) {
	if api == nil || log == nil {
		return nil, fmt.Errorf("command: nil parameter provided to NewProcessor")
	}
	if undo == nil {
		undo = NewUndoStack(0)
	}
	return &Processor{
		api:   api,
		undo:  undo,
		log:   log,
		bus:   bus,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// SetMetricsSink configures the sink used to record mutation outcomes.
func (p *Processor) SetMetricsSink(sink metrics.MutationSink) {
	p.mu.Lock()
	p.sink = sink
	p.mu.Unlock()
}

// SetLogStore configures the store used to persist the mutation audit log.
func (p *Processor) SetLogStore(store audit.LogStore) {
	p.mu.Lock()
	p.store = store
	p.mu.Unlock()
}

// SetRefresh configures the callback that requests a fresh feed snapshot
// after a confirmed mutation.
func (p *Processor) SetRefresh(fn func()) {
	p.mu.Lock()
	p.refresh = fn
	p.mu.Unlock()
}

// SetActor names the operator recorded in the audit log.
func (p *Processor) SetActor(actor string) {
	p.mu.Lock()
	p.actor = actor
	p.mu.Unlock()
}

// UndoDepth returns the current undo history depth.
func (p *Processor) UndoDepth() int { return p.undo.Len() }

// bookingLock returns the mutex serializing mutations for one booking id.
func (p *Processor) bookingLock(id string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[id]
	if !ok {
		l = &sync.Mutex{}
		p.locks[id] = l
	}
	return l
}

// lockBookings acquires the per-booking mutexes in sorted order and returns
// the unlock function.
func (p *Processor) lockBookings(ids []string) func() {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	var held []*sync.Mutex
	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue
		}
		l := p.bookingLock(id)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (p *Processor) toast(level events.ToastLevel, title, detail string) {
	if p.bus != nil {
		p.bus.Publish(events.ToastEvent{Level: level, Title: title, Detail: detail})
	}
}

func (p *Processor) publish(e eventbus.Event) {
	if p.bus != nil {
		p.bus.Publish(e)
	}
}

// record emits metrics and the audit entry for one finished command.
func (p *Processor) record(cmdID, op string, bookingIDs []string, driverID, statusStr, reason string, latency time.Duration, opErr error) {
	mutationsIssued.WithLabelValues(op).Inc()
	mutationLatency.WithLabelValues(op).Observe(latency.Seconds())
	if opErr != nil {
		mutationFailures.WithLabelValues(op).Inc()
	}
	undoDepth.Set(float64(p.undo.Len()))

	errStr := ""
	if opErr != nil {
		errStr = opErr.Error()
	}
	if p.sink != nil {
		rec := metrics.MutationRecord{
			CommandID:  cmdID,
			Op:         op,
			BookingIDs: bookingIDs,
			DriverID:   driverID,
			Status:     statusStr,
			Error:      errStr,
			Latency:    latency,
			Time:       time.Now(),
		}
		if err := p.sink.RecordMutation([]metrics.MutationRecord{rec}); err != nil {
			p.log.Errorf("metrics error: %v", err)
		}
	}
	if p.store != nil {
		rec := audit.Record{
			Timestamp:  time.Now(),
			CommandID:  cmdID,
			Op:         op,
			BookingIDs: bookingIDs,
			DriverID:   driverID,
			Status:     statusStr,
			ReasonCode: reason,
			Actor:      p.actor,
			Error:      errStr,
		}
		if err := p.store.Append(context.Background(), rec); err != nil {
			p.log.Errorf("audit append error: %v", err)
		}
	}
}

// requestRefresh asks the feed for a fresh snapshot so the UI reconciles to
// server truth.
func (p *Processor) requestRefresh() {
	if p.refresh != nil {
		p.refresh()
	}
}

// Assign assigns every eligible booking in the selection to the driver.
// A booking already assigned to that driver is skipped with a warning and
// consumes no undo history. The previous assignment of each mutated booking
// is pushed onto the undo stack before the mutation is issued; on failure
// exactly those entries are removed again.
func (p *Processor) Assign(ctx context.Context, bookings []model.Booking, driver model.Driver, notify NotifyOptions) error {
	if driver.ID == "" {
		return boarderr.NewValidation("driverId", "driver id is required")
	}
	var eligible []model.Booking
	for _, b := range bookings {
		if b.DriverID() == driver.ID {
			p.log.Warnf("booking %s already assigned to %s", b.ID, driver.ID)
			p.toast(events.ToastWarning, "Already assigned",
				fmt.Sprintf("Booking %s is already with %s", b.ID, driver.Name))
			continue
		}
		eligible = append(eligible, b)
	}
	if len(eligible) == 0 {
		return nil
	}
	ids := make([]string, 0, len(eligible))
	for _, b := range eligible {
		ids = append(ids, b.ID)
	}
	req := AssignRequest{
		BookingIDs:  ids,
		DriverID:    driver.ID,
		DriverName:  driver.Name,
		DriverPhone: driver.Phone,
		DriverEmail: driver.Email,
		Notify:      notify,
	}
	return p.mutateAssignment(ctx, "assign", eligible, req)
}

// Unassign removes the driver from every assigned booking in the selection.
// Unassigned bookings are skipped with a warning.
func (p *Processor) Unassign(ctx context.Context, bookings []model.Booking, notify NotifyOptions) error {
	var eligible []model.Booking
	for _, b := range bookings {
		if !b.Assigned() {
			p.log.Warnf("booking %s is not assigned", b.ID)
			p.toast(events.ToastWarning, "Not assigned",
				fmt.Sprintf("Booking %s has no driver to remove", b.ID))
			continue
		}
		eligible = append(eligible, b)
	}
	if len(eligible) == 0 {
		return nil
	}
	ids := make([]string, 0, len(eligible))
	for _, b := range eligible {
		ids = append(ids, b.ID)
	}
	req := AssignRequest{BookingIDs: ids, DriverID: "", Notify: notify}
	return p.mutateAssignment(ctx, "unassign", eligible, req)
}

// mutateAssignment runs the shared optimistic-with-undo protocol for assign
// and unassign.
func (p *Processor) mutateAssignment(ctx context.Context, op string, eligible []model.Booking, req AssignRequest) error {
	if err := checkRequest(req); err != nil {
		p.toast(events.ToastError, "Invalid request", err.Error())
		return err
	}
	unlock := p.lockBookings(req.BookingIDs)
	defer unlock()

	cmdID := uuid.NewString()
	for _, b := range eligible {
		var prev *model.Assignment
		if b.Assignment != nil {
			cp := *b.Assignment
			prev = &cp
		}
		p.undo.Push(UndoEntry{CommandID: cmdID, BookingID: b.ID, Previous: prev})
	}

	start := time.Now()
	err := p.api.AssignDriver(ctx, req)
	latency := time.Since(start)
	if err != nil {
		p.undo.RemoveCommand(cmdID)
		p.record(cmdID, op, req.BookingIDs, req.DriverID, "", "", latency, err)
		p.publish(events.MutationEvent{CommandID: cmdID, Op: op, BookingIDs: req.BookingIDs, DriverID: req.DriverID, Err: err, Latency: latency})
		p.toast(events.ToastError, "Assignment failed", err.Error())
		p.log.Errorf("%s failed for %v: %v", op, req.BookingIDs, err)
		return &boarderr.MutationFailure{Op: op, BookingID: req.BookingIDs[0], Err: err}
	}

	p.record(cmdID, op, req.BookingIDs, req.DriverID, "", "", latency, nil)
	p.publish(events.MutationEvent{CommandID: cmdID, Op: op, BookingIDs: req.BookingIDs, DriverID: req.DriverID, Latency: latency})
	p.log.Infof("%s confirmed for %d bookings", op, len(req.BookingIDs))
	p.requestRefresh()
	return nil
}

// Undo reverses the most recent assignment mutation, restoring the driver
// the booking had before it, or unassigning it if it had none. A failed
// restoration pushes the entry back so a retry targets the same state.
//
// The feed is last-write-wins: if the booking changed externally after the
// recorded mutation, the restoration overwrites that change.
func (p *Processor) Undo(ctx context.Context) error {
	entry, ok := p.undo.Pop()
	if !ok {
		p.toast(events.ToastWarning, "Nothing to undo", "")
		return nil
	}
	lock := p.bookingLock(entry.BookingID)
	lock.Lock()
	defer lock.Unlock()

	req := AssignRequest{BookingIDs: []string{entry.BookingID}}
	if entry.Previous != nil {
		req.DriverID = entry.Previous.DriverID
		req.DriverName = entry.Previous.DriverName
		req.DriverPhone = entry.Previous.DriverPhone
		req.DriverEmail = entry.Previous.DriverEmail
	}

	start := time.Now()
	err := p.api.AssignDriver(ctx, req)
	latency := time.Since(start)
	if err != nil {
		p.undo.Push(entry)
		p.record(entry.CommandID, "undo", req.BookingIDs, req.DriverID, "", "", latency, err)
		p.publish(events.UndoEvent{BookingID: entry.BookingID, Restored: entry.Previous, Err: err})
		p.toast(events.ToastError, "Undo failed", err.Error())
		return &boarderr.UndoFailure{BookingID: entry.BookingID, Err: err}
	}

	p.record(entry.CommandID, "undo", req.BookingIDs, req.DriverID, "", "", latency, nil)
	p.publish(events.UndoEvent{BookingID: entry.BookingID, Restored: entry.Previous})
	p.log.Infof("undo restored booking %s", entry.BookingID)
	p.requestRefresh()
	return nil
}

// ApplyStatus moves every booking in the selection to next. The whole
// selection is validated against the transition table and the reason-code
// gate before any call is issued; validation fails closed for the entire
// bulk operation.
func (p *Processor) ApplyStatus(ctx context.Context, selection []model.Booking, next model.BookingStatus, reasonCode, note string) error {
	if len(selection) == 0 {
		return nil
	}
	if err := status.ValidateBulk(selection, next, reasonCode); err != nil {
		p.toast(events.ToastError, "Invalid status change", err.Error())
		return err
	}
	ids := make([]string, 0, len(selection))
	for _, b := range selection {
		ids = append(ids, b.ID)
	}
	unlock := p.lockBookings(ids)
	defer unlock()

	cmdID := uuid.NewString()
	start := time.Now()
	for _, b := range selection {
		req := StatusRequest{BookingID: b.ID, Status: next.String(), ReasonCode: reasonCode, Note: note}
		if err := checkRequest(req); err != nil {
			p.toast(events.ToastError, "Invalid status change", err.Error())
			return err
		}
		if err := p.api.UpdateBookingStatus(ctx, req); err != nil {
			latency := time.Since(start)
			p.record(cmdID, "status", ids, "", next.String(), reasonCode, latency, err)
			p.toast(events.ToastError, "Status change failed", err.Error())
			p.log.Errorf("status change failed for %s: %v", b.ID, err)
			return &boarderr.MutationFailure{Op: "status", BookingID: b.ID, Err: err}
		}
	}
	latency := time.Since(start)
	p.record(cmdID, "status", ids, "", next.String(), reasonCode, latency, nil)
	p.publish(events.MutationEvent{CommandID: cmdID, Op: "status", BookingIDs: ids, Latency: latency})
	p.requestRefresh()
	return nil
}

// ApplyPricing adjusts one booking's pricing.
func (p *Processor) ApplyPricing(ctx context.Context, req PricingRequest) error {
	if err := checkRequest(req); err != nil {
		p.toast(events.ToastError, "Invalid pricing", err.Error())
		return err
	}
	lock := p.bookingLock(req.BookingID)
	lock.Lock()
	defer lock.Unlock()

	cmdID := uuid.NewString()
	start := time.Now()
	err := p.api.UpdateBookingPricing(ctx, req)
	latency := time.Since(start)
	if err != nil {
		p.record(cmdID, "pricing", []string{req.BookingID}, "", "", req.ReasonCode, latency, err)
		p.toast(events.ToastError, "Pricing update failed", err.Error())
		return &boarderr.MutationFailure{Op: "pricing", BookingID: req.BookingID, Err: err}
	}
	p.record(cmdID, "pricing", []string{req.BookingID}, "", "", req.ReasonCode, latency, nil)
	p.publish(events.MutationEvent{CommandID: cmdID, Op: "pricing", BookingIDs: []string{req.BookingID}, Latency: latency})
	p.requestRefresh()
	return nil
}

// SendSMS sends one bulk message for the selection and reports how many
// recipients it reached.
func (p *Processor) SendSMS(ctx context.Context, req SMSRequest) (SMSReceipt, error) {
	if err := checkRequest(req); err != nil {
		p.toast(events.ToastError, "Invalid message", err.Error())
		return SMSReceipt{}, err
	}
	cmdID := uuid.NewString()
	start := time.Now()
	receipt, err := p.api.SendBulkSMS(ctx, req)
	latency := time.Since(start)
	if err != nil {
		p.record(cmdID, "sms", req.BookingIDs, "", "", "", latency, err)
		p.toast(events.ToastError, "SMS failed", err.Error())
		return SMSReceipt{}, &boarderr.MutationFailure{Op: "sms", BookingID: req.BookingIDs[0], Err: err}
	}
	p.record(cmdID, "sms", req.BookingIDs, "", "", "", latency, nil)
	p.toast(events.ToastInfo, "Message sent", fmt.Sprintf("Delivered to %d recipients", receipt.TotalRecipients))
	return receipt, nil
}
