package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/shuttleops/dispatchboard/core/command"
	"github.com/shuttleops/dispatchboard/core/logger"
)

// ErrAckTimeout is returned when the backend does not acknowledge a command
// within the configured window.
var ErrAckTimeout = errors.New("command ack timeout")

// envelope wraps every command published to the backend.
type envelope struct {
	CommandID string `json:"command_id"`
	Op        string `json:"op"`
	IssuedAt  int64  `json:"issued_at"`
	Request   any    `json:"request"`
}

// ackResult is the backend's reply on the ack topic.
type ackResult struct {
	CommandID       string `json:"command_id"`
	OK              bool   `json:"ok"`
	Error           string `json:"error,omitempty"`
	TotalRecipients int    `json:"total_recipients,omitempty"`
}

// MutationClient implements command.MutationAPI by publishing commands to
// the backend and waiting for a per-command acknowledgment.
type MutationClient struct {
	cli          pahoClient
	commandTopic string
	qos          map[string]byte
	timeout      time.Duration
	maxRetries   int
	backoff      time.Duration
	log          logger.Logger

	mu       sync.Mutex
	ackChans map[string]chan ackResult
}

// NewMutationClient connects to the broker and subscribes to the ack topic.
func NewMutationClient(cfg Config, log logger.Logger) (*MutationClient, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		return nil, fmt.Errorf("feed: logger is required")
	}

	c := &MutationClient{
		commandTopic: cfg.CommandTopic,
		qos:          cfg.QoS,
		timeout:      time.Duration(cfg.AckTimeoutSec) * time.Second,
		maxRetries:   cfg.MaxRetries,
		backoff:      time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:          log,
		ackChans:     make(map[string]chan ackResult),
	}

	cfg.ClientID = cfg.ClientID + "-commands"
	opts, err := newClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.OnConnect = func(cl paho.Client) {
		log.Infof("command channel connected to %s", cfg.Broker)
		qos := byte(0)
		if q, ok := cfg.QoS["ack"]; ok {
			qos = q
		}
		if token := cl.Subscribe(cfg.AckTopic, qos, c.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("ack subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("command channel lost: %v", err)
	}

	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	c.cli = cli
	return c, nil
}

func (c *MutationClient) onAck(_ paho.Client, msg paho.Message) {
	var ack ackResult
	if err := json.Unmarshal(msg.Payload(), &ack); err != nil {
		c.log.Errorf("failed to decode ack: %v", err)
		return
	}
	c.mu.Lock()
	ch, ok := c.ackChans[ack.CommandID]
	c.mu.Unlock()
	if ok {
		select {
		case ch <- ack:
		default:
		}
	}
}

// send publishes one command and blocks until it is acknowledged, the ack
// window elapses, or the context is cancelled.
func (c *MutationClient) send(ctx context.Context, op string, req any) (ackResult, error) {
	cmdID := uuid.NewString()
	payload, err := json.Marshal(envelope{
		CommandID: cmdID,
		Op:        op,
		IssuedAt:  time.Now().UnixMilli(),
		Request:   req,
	})
	if err != nil {
		return ackResult{}, err
	}

	ch := make(chan ackResult, 1)
	c.mu.Lock()
	c.ackChans[cmdID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.ackChans, cmdID)
		c.mu.Unlock()
	}()

	qos := byte(0)
	if q, ok := c.qos["command"]; ok {
		qos = q
	}
	var publishErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		token := c.cli.Publish(c.commandTopic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			break
		}
		c.log.Errorf("command publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(c.backoff * time.Duration(1<<attempt))
	}
	if publishErr != nil {
		return ackResult{}, publishErr
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case ack := <-ch:
		if !ack.OK {
			return ack, fmt.Errorf("backend rejected %s: %s", op, ack.Error)
		}
		return ack, nil
	case <-timer.C:
		return ackResult{}, fmt.Errorf("%s: %w", op, ErrAckTimeout)
	case <-ctx.Done():
		return ackResult{}, ctx.Err()
	}
}

func (c *MutationClient) AssignDriver(ctx context.Context, req command.AssignRequest) error {
	_, err := c.send(ctx, "assign_driver", req)
	return err
}

func (c *MutationClient) UpdateBookingStatus(ctx context.Context, req command.StatusRequest) error {
	_, err := c.send(ctx, "update_status", req)
	return err
}

func (c *MutationClient) UpdateBookingPricing(ctx context.Context, req command.PricingRequest) error {
	_, err := c.send(ctx, "update_pricing", req)
	return err
}

func (c *MutationClient) SendBulkSMS(ctx context.Context, req command.SMSRequest) (command.SMSReceipt, error) {
	ack, err := c.send(ctx, "send_sms", req)
	if err != nil {
		return command.SMSReceipt{}, err
	}
	return command.SMSReceipt{TotalRecipients: ack.TotalRecipients}, nil
}

// Close disconnects the command channel.
func (c *MutationClient) Close() error {
	if c.cli != nil && c.cli.IsConnected() {
		c.cli.Disconnect(250)
	}
	return nil
}
