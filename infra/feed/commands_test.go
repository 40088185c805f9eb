package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shuttleops/dispatchboard/core/command"
)

// ackOnPublish wires the mock so every published command is immediately
// acknowledged with the given template.
func ackOnPublish(mc *mockClient, c **MutationClient, tmpl ackResult) {
	mc.publishHook = func(_ string, payload []byte) {
		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return
		}
		ack := tmpl
		ack.CommandID = env.CommandID
		raw, _ := json.Marshal(ack)
		(*c).onAck(nil, mockMessage{raw})
	}
}

func TestMutationClientSubscribesAckTopic(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	c, err := NewMutationClient(Config{AckTopic: "ops/ack", QoS: map[string]byte{"ack": 1}}, testLogger{})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer func() { _ = c.Close() }()
	if len(mc.subscribed) != 1 || mc.subscribed[0].topic != "ops/ack" || mc.subscribed[0].qos != 1 {
		t.Fatalf("ack subscription not applied: %+v", mc.subscribed)
	}
}

func TestAssignDriverAcked(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	c, err := NewMutationClient(Config{}, testLogger{})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer func() { _ = c.Close() }()
	ackOnPublish(mc, &c, ackResult{OK: true})

	req := command.AssignRequest{BookingIDs: []string{"b1"}, DriverID: "d1"}
	if err := c.AssignDriver(context.Background(), req); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(mc.published) != 1 || mc.published[0].topic != "dispatch/command" {
		t.Fatalf("command not published: %+v", mc.published)
	}
	var env envelope
	if err := json.Unmarshal(mc.payloads[0], &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Op != "assign_driver" || env.CommandID == "" {
		t.Fatalf("bad envelope: %+v", env)
	}
}

func TestBackendRejectionSurfaces(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	c, err := NewMutationClient(Config{}, testLogger{})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer func() { _ = c.Close() }()
	ackOnPublish(mc, &c, ackResult{OK: false, Error: "booking already departed"})

	err = c.UpdateBookingStatus(context.Background(), command.StatusRequest{BookingID: "b1", Status: "cancelled"})
	if err == nil || !strings.Contains(err.Error(), "booking already departed") {
		t.Fatalf("expected backend rejection, got %v", err)
	}
}

func TestSendBulkSMSReportsRecipients(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	c, err := NewMutationClient(Config{}, testLogger{})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer func() { _ = c.Close() }()
	ackOnPublish(mc, &c, ackResult{OK: true, TotalRecipients: 7})

	receipt, err := c.SendBulkSMS(context.Background(), command.SMSRequest{
		BookingIDs: []string{"b1", "b2"}, Message: "pickup delayed 10m", Recipient: "passenger",
	})
	if err != nil {
		t.Fatalf("sms: %v", err)
	}
	if receipt.TotalRecipients != 7 {
		t.Fatalf("recipients = %d, want 7", receipt.TotalRecipients)
	}
}

func TestAckTimeout(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	c, err := NewMutationClient(Config{AckTimeoutSec: 1}, testLogger{})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer func() { _ = c.Close() }()

	err = c.AssignDriver(context.Background(), command.AssignRequest{BookingIDs: []string{"b1"}})
	if !errors.Is(err, ErrAckTimeout) {
		t.Fatalf("expected ack timeout, got %v", err)
	}
}

func TestSendCancelledContext(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	c, err := NewMutationClient(Config{}, testLogger{})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.AssignDriver(ctx, command.AssignRequest{BookingIDs: []string{"b1"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestPublishFailureAfterRetries(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("down"), fmt.Errorf("down"), fmt.Errorf("down"), fmt.Errorf("down")}}
	withMock(t, mc)
	c, err := NewMutationClient(Config{MaxRetries: 3, BackoffMS: 1}, testLogger{})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer func() { _ = c.Close() }()

	err = c.AssignDriver(context.Background(), command.AssignRequest{BookingIDs: []string{"b1"}})
	if err == nil {
		t.Fatalf("expected publish failure")
	}
	if len(mc.published) != 4 {
		t.Fatalf("expected 4 attempts, got %d", len(mc.published))
	}
}
