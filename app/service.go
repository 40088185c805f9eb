// Package app wires the configuration into a running dispatch board.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shuttleops/dispatchboard/config"
	"github.com/shuttleops/dispatchboard/core/board"
	"github.com/shuttleops/dispatchboard/core/command"
	"github.com/shuttleops/dispatchboard/core/command/audit"
	corefeed "github.com/shuttleops/dispatchboard/core/feed"
	coremetrics "github.com/shuttleops/dispatchboard/core/metrics"
	infrafeed "github.com/shuttleops/dispatchboard/infra/feed"
	"github.com/shuttleops/dispatchboard/infra/logger"
	"github.com/shuttleops/dispatchboard/infra/metrics"
	"github.com/shuttleops/dispatchboard/internal/eventbus"
)

// Service orchestrates the board session and its connectors.
type Service struct {
	Session   *board.Session
	Processor *command.Processor
	Views     []board.View

	src         corefeed.Feed
	commands    *infrafeed.MutationClient
	store       audit.LogStore
	bus         eventbus.EventBus
	log         logger.Logger
	scope       corefeed.Scope
	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	loc, err := time.LoadLocation(cfg.Board.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	now := time.Now().In(loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var src corefeed.Feed
	var api command.MutationAPI
	var commands *infrafeed.MutationClient
	if cfg.Board.StaticSnapshot != "" {
		static, err := infrafeed.NewStaticFeed(cfg.Board.StaticSnapshot)
		if err != nil {
			return nil, fmt.Errorf("static feed: %w", err)
		}
		src = static
		api = readOnlyAPI{}
	} else {
		live, err := infrafeed.NewMQTTFeed(cfg.Feed, logg)
		if err != nil {
			return nil, fmt.Errorf("feed: %w", err)
		}
		src = live
		commands, err = infrafeed.NewMutationClient(cfg.Feed, logg)
		if err != nil {
			_ = live.Close()
			return nil, fmt.Errorf("command channel: %w", err)
		}
		api = commands
	}

	var sinks []coremetrics.MutationSink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.MutationSink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	views, err := cfg.Views.LoadViews()
	if err != nil {
		return nil, err
	}

	// The configured fleet wins; otherwise the initial view may narrow the
	// subscription to its own fleet scope.
	fleet := cfg.Board.Fleet
	if fleet == "" {
		fleet = views[0].Scope
	}

	bus := eventbus.New()
	engine := board.NewEngine(cfg.Timeline, loc, time.Now)
	session := board.NewSession(engine, src, bus, logg, day)
	session.SetView(views[0])
	if rec, ok := sink.(coremetrics.BoardRecorder); ok {
		session.SetRecorder(rec)
	}

	undo := command.NewUndoStack(cfg.Board.UndoDepth)
	processor, err := command.NewProcessor(api, undo, bus, logg)
	if err != nil {
		return nil, fmt.Errorf("processor: %w", err)
	}
	processor.SetActor(cfg.Board.Actor)
	processor.SetRefresh(src.Refresh)
	if sink != nil {
		processor.SetMetricsSink(sink)
	}

	store, err := openAuditStore(cfg.Audit)
	if err != nil {
		return nil, err
	}
	processor.SetLogStore(store)

	return &Service{
		Session:     session,
		Processor:   processor,
		Views:       views,
		src:         src,
		commands:    commands,
		store:       store,
		bus:         bus,
		log:         logg,
		scope:       corefeed.Scope{Day: day, Fleet: fleet},
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

func openAuditStore(cfg config.AuditConfig) (audit.LogStore, error) {
	switch cfg.Backend {
	case "sqlite":
		return audit.NewSQLiteStore(cfg.Path)
	default:
		return audit.NewJSONLStore(cfg.Path)
	}
}

// Run starts the session and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go func() {
		if err := s.Session.Run(ctx, s.scope); err != nil {
			s.log.Errorf("session: %v", err)
		}
	}()
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var firstErr error
	if err := s.src.Close(); err != nil {
		firstErr = err
	}
	if s.commands != nil {
		if err := s.commands.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.bus.Close()
	return firstErr
}

// readOnlyAPI rejects every mutation. It backs static snapshot mode, where
// there is no backend to apply changes.
type readOnlyAPI struct{}

var errReadOnly = fmt.Errorf("static snapshot mode is read-only")

func (readOnlyAPI) AssignDriver(context.Context, command.AssignRequest) error { return errReadOnly }
func (readOnlyAPI) UpdateBookingStatus(context.Context, command.StatusRequest) error {
	return errReadOnly
}
func (readOnlyAPI) UpdateBookingPricing(context.Context, command.PricingRequest) error {
	return errReadOnly
}
func (readOnlyAPI) SendBulkSMS(context.Context, command.SMSRequest) (command.SMSReceipt, error) {
	return command.SMSReceipt{}, errReadOnly
}
