package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func strPtr(s string) *string { return &s }

func order(id, status, user string) domain.Order {
	return domain.Order{ID: id, Status: status, UserID: strPtr(user)}
}

// fakeFetcher returns the queued results in turn, repeating the last one.
type fakeFetcher struct {
	mu      sync.Mutex
	results [][]domain.Order
	errs    []error
	calls   int
	hook    func(call int)
}

func (f *fakeFetcher) ListByScope(ctx context.Context, scope domain.OrderScope) ([]domain.Order, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	var res []domain.Order
	if len(f.results) > 0 {
		res = f.results[min(call, len(f.results)-1)]
	}
	var err error
	if call < len(f.errs) {
		err = f.errs[call]
	}
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return res, err
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSub struct {
	key    string
	feed   *fakeFeed
	events chan domain.ChangeEvent
	done   chan struct{}
	once   sync.Once
}

func (s *fakeSub) Events() <-chan domain.ChangeEvent { return s.events }
func (s *fakeSub) Done() <-chan struct{}             { return s.done }
func (s *fakeSub) Err() error                        { return nil }

func (s *fakeSub) Close() error {
	s.feed.record("close " + s.key)
	s.drop()
	return nil
}

func (s *fakeSub) drop() {
	s.once.Do(func() { close(s.done) })
}

type fakeFeed struct {
	mu       sync.Mutex
	failures int
	subs     []*fakeSub
	log      []string
	prefill  map[int][]domain.ChangeEvent
}

func (f *fakeFeed) Subscribe(ctx context.Context, scope domain.OrderScope) (interfaces.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		f.log = append(f.log, "fail "+scope.Key())
		return nil, errors.New("broker unavailable")
	}
	sub := &fakeSub{
		key:    scope.Key(),
		feed:   f,
		events: make(chan domain.ChangeEvent, 16),
		done:   make(chan struct{}),
	}
	for _, ev := range f.prefill[len(f.subs)] {
		sub.events <- ev
	}
	f.subs = append(f.subs, sub)
	f.log = append(f.log, "subscribe "+scope.Key())
	return sub, nil
}

func (f *fakeFeed) record(entry string) {
	f.mu.Lock()
	f.log = append(f.log, entry)
	f.mu.Unlock()
}

func (f *fakeFeed) sub(i int) *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.subs) {
		return nil
	}
	return f.subs[i]
}

func (f *fakeFeed) Log() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

func ids(orders []domain.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

// running is a Syncer started by start. done closes once Run returns;
// err is only read after that.
type running struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func start(t *testing.T, s *Syncer) *running {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := &running{cancel: cancel, done: make(chan struct{})}
	go func() {
		r.err = s.Run(ctx)
		close(r.done)
	}()
	t.Cleanup(func() {
		r.cancel()
		<-r.done
	})
	return r
}

func TestSyncer_AppliesUpdateThenDelete(t *testing.T) {
	a, b := order("A", "pending", "u1"), order("B", "pending", "u1")
	fetcher := &fakeFetcher{results: [][]domain.Order{{a, b}}}
	feed := &fakeFeed{}
	s := NewSyncer(domain.UserScope("u1"), fetcher, feed, logger.NewNop(), Options{PollInterval: time.Hour})

	start(t, s)
	require.Eventually(t, func() bool { return s.Mode() == ModeLive }, waitFor, tick)
	assert.Equal(t, []string{"A", "B"}, ids(s.Orders()))

	updated := order("B", "preparing", "u1")
	sub := feed.sub(0)
	sub.events <- domain.ChangeEvent{Op: domain.ChangeUpdate, Record: &updated}
	sub.events <- domain.ChangeEvent{Op: domain.ChangeDelete, OrderID: "A"}

	require.Eventually(t, func() bool { return len(s.Orders()) == 1 }, waitFor, tick)
	got := s.Orders()
	assert.Equal(t, "B", got[0].ID)
	assert.Equal(t, "preparing", got[0].Status)
	assert.Equal(t, 1, fetcher.Calls())
}

func TestSyncer_InsertDedupeAndScope(t *testing.T) {
	fetcher := &fakeFetcher{results: [][]domain.Order{{order("A", "pending", "u1")}}}
	feed := &fakeFeed{}
	s := NewSyncer(domain.UserScope("u1"), fetcher, feed, logger.NewNop(), Options{PollInterval: time.Hour})

	start(t, s)
	require.Eventually(t, func() bool { return s.Mode() == ModeLive }, waitFor, tick)

	c := order("C", "pending", "u1")
	foreign := order("X", "pending", "u2")
	movedAway := order("A", "pending", "u2")

	sub := feed.sub(0)
	sub.events <- domain.ChangeEvent{Op: domain.ChangeInsert, Record: &c}
	sub.events <- domain.ChangeEvent{Op: domain.ChangeInsert, Record: &c}
	sub.events <- domain.ChangeEvent{Op: domain.ChangeInsert, Record: &foreign}
	sub.events <- domain.ChangeEvent{Op: domain.ChangeUpdate, Record: &movedAway}
	sub.events <- domain.ChangeEvent{Op: domain.ChangeDelete, OrderID: "missing"}

	require.Eventually(t, func() bool {
		got := ids(s.Orders())
		return len(got) == 1 && got[0] == "C"
	}, waitFor, tick)
}

func TestSyncer_ReconcilesOnceAfterReconnect(t *testing.T) {
	a, b := order("A", "pending", "u1"), order("B", "pending", "u1")
	reconciled := order("B", "ready", "u1")
	delivering := order("B", "delivering", "u1")

	fetcher := &fakeFetcher{results: [][]domain.Order{{a, b}, {reconciled}}}
	feed := &fakeFeed{prefill: map[int][]domain.ChangeEvent{
		1: {{Op: domain.ChangeUpdate, Record: &delivering}},
	}}
	s := NewSyncer(domain.UserScope("u1"), fetcher, feed, logger.NewNop(), Options{PollInterval: 10 * time.Millisecond})

	start(t, s)
	require.Eventually(t, func() bool { return s.Mode() == ModeLive }, waitFor, tick)

	feed.sub(0).drop()

	require.Eventually(t, func() bool {
		got := s.Orders()
		return len(got) == 1 && got[0].Status == "delivering"
	}, waitFor, tick)

	// The event buffered on the new subscription landed on top of the
	// reconcile fetch, not underneath it.
	assert.Equal(t, ModeLive, s.Mode())
	assert.Equal(t, 2, fetcher.Calls())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, fetcher.Calls(), "no polling once live again")
}

func TestSyncer_PollsWhileFeedIsDown(t *testing.T) {
	fetcher := &fakeFetcher{results: [][]domain.Order{{order("A", "pending", "u1")}}}
	feed := &fakeFeed{failures: 3}
	s := NewSyncer(domain.UserScope("u1"), fetcher, feed, logger.NewNop(), Options{PollInterval: 5 * time.Millisecond})

	start(t, s)

	// initial subscribe fails, then two ticks fail and poll, the third
	// resubscribes and reconciles.
	require.Eventually(t, func() bool { return s.Mode() == ModeLive }, waitFor, tick)
	assert.Equal(t, 4, fetcher.Calls())
	assert.Equal(t, []string{"fail user.u1", "fail user.u1", "fail user.u1", "subscribe user.u1"}, feed.Log())
}

func TestSyncer_FailedInitialFetchRecoversFullState(t *testing.T) {
	a, b := order("A", "pending", "u1"), order("B", "pending", "u1")
	fetcher := &fakeFetcher{
		results: [][]domain.Order{{a, b}},
		errs:    []error{errors.New("timeout")},
	}
	feed := &fakeFeed{}
	s := NewSyncer(domain.UserScope("u1"), fetcher, feed, logger.NewNop(), Options{PollInterval: 10 * time.Millisecond})

	start(t, s)

	// The first subscription is dropped with the failed fetch; live mode
	// resumes only after a resubscribe and a full fetch.
	require.Eventually(t, func() bool { return s.Mode() == ModeLive }, waitFor, tick)
	assert.NoError(t, s.Err())
	assert.Equal(t, []string{"A", "B"}, ids(s.Orders()))
	assert.Equal(t, 2, fetcher.Calls())
	assert.Equal(t, []string{"subscribe user.u1", "close user.u1", "subscribe user.u1"}, feed.Log())

	c := order("C", "pending", "u1")
	feed.sub(1).events <- domain.ChangeEvent{Op: domain.ChangeInsert, Record: &c}
	require.Eventually(t, func() bool { return len(s.Orders()) == 3 }, waitFor, tick)
	assert.Equal(t, []string{"A", "B", "C"}, ids(s.Orders()))
}

func TestSyncer_SubscribesBeforeInitialFetch(t *testing.T) {
	a := order("A", "pending", "u1")
	b := order("B", "pending", "u1")
	feed := &fakeFeed{}
	fetcher := &fakeFetcher{results: [][]domain.Order{{a}}}
	// B is inserted while the initial fetch is in flight; the fetch result
	// does not include it.
	fetcher.hook = func(call int) {
		if call == 0 {
			if sub := feed.sub(0); sub != nil {
				sub.events <- domain.ChangeEvent{Op: domain.ChangeInsert, Record: &b}
			}
		}
	}
	s := NewSyncer(domain.UserScope("u1"), fetcher, feed, logger.NewNop(), Options{PollInterval: time.Hour})

	start(t, s)
	require.Eventually(t, func() bool { return len(s.Orders()) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"A", "B"}, ids(s.Orders()))
	assert.Equal(t, 1, fetcher.Calls())
}

func TestSyncer_DiscardsFetchAfterDisposal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &fakeFetcher{
		results: [][]domain.Order{{order("A", "pending", "u1")}},
		hook:    func(int) { cancel() },
	}
	feed := &fakeFeed{}
	s := NewSyncer(domain.UserScope("u1"), fetcher, feed, logger.NewNop(), Options{PollInterval: time.Hour})

	require.NoError(t, s.Run(ctx))
	assert.Empty(t, s.Orders())
	assert.Equal(t, []string{"subscribe user.u1", "close user.u1"}, feed.Log())
	assert.Equal(t, ModeStopped, s.Mode())
}

func TestSyncer_TeardownClosesSubscription(t *testing.T) {
	fetcher := &fakeFetcher{}
	feed := &fakeFeed{}
	s := NewSyncer(domain.GuestScope("fp-1"), fetcher, feed, logger.NewNop(), Options{PollInterval: time.Hour})

	r := start(t, s)
	require.Eventually(t, func() bool { return s.Mode() == ModeLive }, waitFor, tick)

	r.cancel()
	select {
	case <-r.done:
		assert.NoError(t, r.err)
	case <-time.After(waitFor):
		t.Fatal("syncer did not stop")
	}

	assert.Equal(t, []string{"subscribe device.fp-1", "close device.fp-1"}, feed.Log())
	assert.Equal(t, ModeStopped, s.Mode())
}

func TestSyncer_AdminScopeDropsTerminal(t *testing.T) {
	tax := domain.DefaultTaxonomy()
	fetcher := &fakeFetcher{results: [][]domain.Order{{
		order("A", "pending", "u1"),
		order("B", "delivered", "u2"),
	}}}
	feed := &fakeFeed{}
	s := NewSyncer(domain.AdminScope(tax.Terminal()), fetcher, feed, logger.NewNop(), Options{PollInterval: time.Hour})

	start(t, s)
	require.Eventually(t, func() bool { return s.Mode() == ModeLive }, waitFor, tick)
	assert.Equal(t, []string{"A"}, ids(s.Orders()))

	done := order("A", "cancelled", "u1")
	feed.sub(0).events <- domain.ChangeEvent{Op: domain.ChangeUpdate, Record: &done}

	require.Eventually(t, func() bool { return len(s.Orders()) == 0 }, waitFor, tick)
}

func TestSyncer_InvalidScope(t *testing.T) {
	s := NewSyncer(domain.OrderScope{}, &fakeFetcher{}, &fakeFeed{}, logger.NewNop(), Options{})
	assert.Error(t, s.Run(context.Background()))
}
