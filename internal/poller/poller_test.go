package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xcam/rec-engine/internal/xcam"
)

type fakeLister struct {
	pages map[int][]xcam.Broadcast
	err   error
	calls int
}

func (f *fakeLister) OnlineBroadcasts(ctx context.Context, page, limit int, country string) ([]xcam.Broadcast, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[page], nil
}

type fakeDispatcher struct {
	claimed    map[string]bool
	dispatched []string
}

func newFakeDispatcher(alreadyClaimed ...string) *fakeDispatcher {
	d := &fakeDispatcher{claimed: make(map[string]bool)}
	for _, u := range alreadyClaimed {
		d.claimed[u] = true
	}
	return d
}

func (d *fakeDispatcher) TryClaim(username string) bool {
	if d.claimed[username] {
		return false
	}
	d.claimed[username] = true
	return true
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, bc xcam.Broadcast) {
	d.dispatched = append(d.dispatched, bc.Username)
}

func bc(username string) xcam.Broadcast {
	return xcam.Broadcast{Username: username}
}

func TestCycle_dispatchesUnclaimed(t *testing.T) {
	api := &fakeLister{pages: map[int][]xcam.Broadcast{
		1: {bc("alice"), bc("bob")},
		2: {bc("carol")},
	}}
	coord := newFakeDispatcher("bob")

	p := New(Options{Pages: 2, Limit: 50}, api, coord, nil, nil)
	p.Cycle(context.Background())

	assert.Equal(t, []string{"alice", "carol"}, coord.dispatched)
}

func TestCycle_stopsOnEmptyPage(t *testing.T) {
	api := &fakeLister{pages: map[int][]xcam.Broadcast{
		1: {bc("alice")},
		// page 2 empty, page 3 would have data but must not be fetched
		3: {bc("bob")},
	}}
	coord := newFakeDispatcher()

	p := New(Options{Pages: 5, Limit: 50}, api, coord, nil, nil)
	p.Cycle(context.Background())

	assert.Equal(t, 2, api.calls, "fetching must stop at the first empty page")
	assert.Equal(t, []string{"alice"}, coord.dispatched)
}

func TestCycle_skipsBroadcastsWithoutUsername(t *testing.T) {
	api := &fakeLister{pages: map[int][]xcam.Broadcast{
		1: {bc(""), bc("alice")},
	}}
	coord := newFakeDispatcher()

	p := New(Options{Pages: 1, Limit: 50}, api, coord, nil, nil)
	p.Cycle(context.Background())

	assert.Equal(t, []string{"alice"}, coord.dispatched)
}

func TestCycle_listingErrorIsNotFatal(t *testing.T) {
	api := &fakeLister{err: errors.New("api unreachable")}
	coord := newFakeDispatcher()

	p := New(Options{Pages: 2, Limit: 50}, api, coord, nil, nil)
	p.Cycle(context.Background())

	assert.Empty(t, coord.dispatched)
}

func TestCycle_duplicateAcrossCyclesIsSkipped(t *testing.T) {
	api := &fakeLister{pages: map[int][]xcam.Broadcast{
		1: {bc("alice")},
	}}
	coord := newFakeDispatcher()

	p := New(Options{Pages: 1, Limit: 50}, api, coord, nil, nil)
	p.Cycle(context.Background())
	p.Cycle(context.Background())

	assert.Equal(t, []string{"alice"}, coord.dispatched,
		"a second cycle must not dispatch a still-claimed username")
}

func TestRun_stopsOnContextCancel(t *testing.T) {
	api := &fakeLister{}
	coord := newFakeDispatcher()
	p := New(Options{Pages: 1, Limit: 10, Interval: time.Hour}, api, coord, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
	assert.GreaterOrEqual(t, api.calls, 1, "at least one cycle runs before stopping")
}
