// Package feed provides the MQTT-backed live feed. The reservation backend
// pushes full snapshots per operating day; the board subscribes and asks for
// refreshes after mutations.
package feed

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/shuttleops/dispatchboard/core/boarderr"
	corefeed "github.com/shuttleops/dispatchboard/core/feed"
	"github.com/shuttleops/dispatchboard/core/logger"
	"github.com/shuttleops/dispatchboard/core/model"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker        string          `json:"broker"`
	ClientID      string          `json:"client_id"`
	Username      string          `json:"username"`
	Password      string          `json:"password"`
	SnapshotTopic string          `json:"snapshot_topic"`
	RefreshTopic  string          `json:"refresh_topic"`
	CommandTopic  string          `json:"command_topic"`
	AckTopic      string          `json:"ack_topic"`
	AckTimeoutSec int             `json:"ack_timeout_seconds"`
	UseTLS        bool            `json:"use_tls"`
	ClientCert    string          `json:"client_cert"`
	ClientKey     string          `json:"client_key"`
	CABundle      string          `json:"ca_bundle"`
	QoS           map[string]byte `json:"qos"`
	MaxRetries    int             `json:"max_retries"`
	BackoffMS     int             `json:"backoff_ms"`
	TLSConfig     *tls.Config     `json:"-"`
}

// SetDefaults fills unset fields with working local-broker values.
func (c *Config) SetDefaults() {
	if c.Broker == "" {
		c.Broker = "tcp://localhost:1883"
	}
	if c.ClientID == "" {
		c.ClientID = "dispatchboard"
	}
	if c.SnapshotTopic == "" {
		c.SnapshotTopic = "dispatch/snapshot"
	}
	if c.RefreshTopic == "" {
		c.RefreshTopic = "dispatch/refresh"
	}
	if c.CommandTopic == "" {
		c.CommandTopic = "dispatch/command"
	}
	if c.AckTopic == "" {
		c.AckTopic = "dispatch/ack"
	}
	if c.AckTimeoutSec <= 0 {
		c.AckTimeoutSec = 5
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks required connection fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("feed: broker is required")
	}
	if c.SnapshotTopic == "" || c.RefreshTopic == "" {
		return fmt.Errorf("feed: snapshot_topic and refresh_topic are required")
	}
	return nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// wireSnapshot is the payload pushed by the reservation backend.
type wireSnapshot struct {
	Day      string          `json:"day"`
	Fleet    string          `json:"fleet"`
	Bookings []model.Booking `json:"bookings"`
	Drivers  []model.Driver  `json:"drivers"`
}

type subscriber struct {
	scope corefeed.Scope
	ch    chan corefeed.Snapshot
}

// MQTTFeed implements corefeed.Feed over an MQTT broker.
type MQTTFeed struct {
	cli          pahoClient
	refreshTopic string
	qos          map[string]byte
	maxRetries   int
	backoff      time.Duration
	log          logger.Logger

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

// NewMQTTFeed connects to the broker and subscribes to the snapshot topic.
func NewMQTTFeed(cfg Config, log logger.Logger) (*MQTTFeed, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		return nil, fmt.Errorf("feed: logger is required")
	}

	f := &MQTTFeed{
		refreshTopic: cfg.RefreshTopic,
		qos:          cfg.QoS,
		maxRetries:   cfg.MaxRetries,
		backoff:      time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:          log,
		subs:         make(map[int]*subscriber),
	}

	opts, err := newClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("feed connected to %s", cfg.Broker)
		qos := byte(0)
		if q, ok := cfg.QoS["snapshot"]; ok {
			qos = q
		}
		if token := c.Subscribe(cfg.SnapshotTopic, qos, f.onSnapshot); token.Wait() && token.Error() != nil {
			log.Errorf("snapshot subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("feed connection lost: %v", err)
		f.broadcast(corefeed.Snapshot{Err: &boarderr.FeedError{Scope: "connection", Err: err}})
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to feed broker")
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	f.cli = c
	return f, nil
}

func newClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// Subscribe registers a snapshot channel for the scope. Delivery starts with
// a loading snapshot and a refresh request so the backend pushes current
// state without waiting for its next scheduled push.
func (f *MQTTFeed) Subscribe(ctx context.Context, scope corefeed.Scope) (<-chan corefeed.Snapshot, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, fmt.Errorf("feed: closed")
	}
	id := f.nextID
	f.nextID++
	sub := &subscriber{scope: scope, ch: make(chan corefeed.Snapshot, 4)}
	f.subs[id] = sub
	f.mu.Unlock()

	sub.ch <- corefeed.Snapshot{Loading: true}
	f.Refresh()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		if s, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(s.ch)
		}
		f.mu.Unlock()
	}()
	return sub.ch, nil
}

// Refresh asks the backend for an immediate snapshot push.
func (f *MQTTFeed) Refresh() {
	payload, err := json.Marshal(struct {
		RequestedAt int64 `json:"requested_at"`
	}{RequestedAt: time.Now().UnixMilli()})
	if err != nil {
		f.log.Errorf("encode refresh: %v", err)
		return
	}
	qos := byte(0)
	if q, ok := f.qos["refresh"]; ok {
		qos = q
	}
	var publishErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		token := f.cli.Publish(f.refreshTopic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return
		}
		f.log.Errorf("refresh publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(f.backoff * time.Duration(1<<attempt))
	}
	f.broadcast(corefeed.Snapshot{Err: &boarderr.FeedError{Scope: "refresh", Err: publishErr}})
}

// Close disconnects from the broker and closes all subscriber channels.
func (f *MQTTFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	for id, s := range f.subs {
		delete(f.subs, id)
		close(s.ch)
	}
	f.mu.Unlock()
	if f.cli != nil && f.cli.IsConnected() {
		f.cli.Disconnect(250)
	}
	return nil
}

func (f *MQTTFeed) onSnapshot(_ paho.Client, msg paho.Message) {
	var ws wireSnapshot
	if err := json.Unmarshal(msg.Payload(), &ws); err != nil {
		f.log.Errorf("failed to decode snapshot: %v", err)
		f.broadcast(corefeed.Snapshot{Err: &boarderr.FeedError{Scope: "snapshot", Err: err}})
		return
	}
	f.mu.Lock()
	for _, s := range f.subs {
		if !scopeMatches(s.scope, ws) {
			continue
		}
		deliver(s.ch, corefeed.Snapshot{Bookings: ws.Bookings, Drivers: ws.Drivers})
	}
	f.mu.Unlock()
}

// broadcast pushes a snapshot to every subscriber regardless of scope, used
// for transport-level errors that affect all of them.
func (f *MQTTFeed) broadcast(snap corefeed.Snapshot) {
	f.mu.Lock()
	for _, s := range f.subs {
		deliver(s.ch, snap)
	}
	f.mu.Unlock()
}

// deliver drops the oldest buffered snapshot when the subscriber lags.
// Snapshots are full state, so only the newest one matters.
func deliver(ch chan corefeed.Snapshot, snap corefeed.Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func scopeMatches(scope corefeed.Scope, ws wireSnapshot) bool {
	if !scope.Day.IsZero() && ws.Day != "" && ws.Day != scope.Day.Format("2006-01-02") {
		return false
	}
	if scope.Fleet != "" && ws.Fleet != "" && ws.Fleet != scope.Fleet {
		return false
	}
	return true
}
