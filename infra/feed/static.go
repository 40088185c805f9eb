package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/shuttleops/dispatchboard/core/boarderr"
	corefeed "github.com/shuttleops/dispatchboard/core/feed"
	"github.com/shuttleops/dispatchboard/core/model"
)

// StaticFeed replays a snapshot from a JSON file on disk. It backs demo
// setups and lets the board run when no broker is reachable; Refresh
// re-reads the file so edits show up without a restart.
type StaticFeed struct {
	path string

	mu     sync.Mutex
	subs   map[int]chan corefeed.Snapshot
	nextID int
	closed bool
}

// NewStaticFeed builds a file-backed feed. The file must exist and parse as
// a snapshot payload at construction time.
func NewStaticFeed(path string) (*StaticFeed, error) {
	f := &StaticFeed{path: path, subs: make(map[int]chan corefeed.Snapshot)}
	if _, err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *StaticFeed) load() (corefeed.Snapshot, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return corefeed.Snapshot{}, fmt.Errorf("static feed: %w", err)
	}
	var ws struct {
		Bookings []model.Booking `json:"bookings"`
		Drivers  []model.Driver  `json:"drivers"`
	}
	if err := json.Unmarshal(raw, &ws); err != nil {
		return corefeed.Snapshot{}, fmt.Errorf("static feed: %w", err)
	}
	return corefeed.Snapshot{Bookings: ws.Bookings, Drivers: ws.Drivers}, nil
}

// Subscribe delivers the file contents immediately, then again on every
// Refresh. Scope is ignored: the file is the whole world.
func (f *StaticFeed) Subscribe(ctx context.Context, _ corefeed.Scope) (<-chan corefeed.Snapshot, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, fmt.Errorf("static feed: closed")
	}
	id := f.nextID
	f.nextID++
	ch := make(chan corefeed.Snapshot, 4)
	f.subs[id] = ch
	f.mu.Unlock()

	snap, err := f.load()
	if err != nil {
		snap = corefeed.Snapshot{Err: &boarderr.FeedError{Scope: "snapshot", Err: err}}
	}
	ch <- snap

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		if c, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(c)
		}
		f.mu.Unlock()
	}()
	return ch, nil
}

// Refresh re-reads the file and pushes the result to all subscribers.
func (f *StaticFeed) Refresh() {
	snap, err := f.load()
	if err != nil {
		snap = corefeed.Snapshot{Err: &boarderr.FeedError{Scope: "snapshot", Err: err}}
	}
	f.mu.Lock()
	for _, ch := range f.subs {
		deliver(ch, snap)
	}
	f.mu.Unlock()
}

// Close closes all subscriber channels.
func (f *StaticFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
	return nil
}
