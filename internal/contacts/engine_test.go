package contacts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/chatline/internal/chat"
)

type observers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

func (o *observers) subscribe(fn func()) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[int]func())
	}
	id := o.next
	o.next++
	o.fns[id] = fn
	return func() {
		o.mu.Lock()
		delete(o.fns, id)
		o.mu.Unlock()
	}
}

func (o *observers) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.fns)
}

func (o *observers) fire() {
	o.mu.Lock()
	fns := make([]func(), 0, len(o.fns))
	for _, fn := range o.fns {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type fakeDirectory struct {
	observers
	release chan struct{}
	result  []chat.User
	err     error

	mu       sync.Mutex
	users    []chat.User
	self     chat.User
	hasSelf  bool
	loading  bool
	refreshs int
}

func (d *fakeDirectory) Refresh(ctx context.Context) error {
	d.mu.Lock()
	d.loading = true
	d.refreshs++
	d.mu.Unlock()
	d.fire()

	if d.release != nil {
		select {
		case <-d.release:
		case <-ctx.Done():
			d.mu.Lock()
			d.loading = false
			d.mu.Unlock()
			return ctx.Err()
		}
	}

	d.mu.Lock()
	d.loading = false
	if d.err == nil {
		d.users = append([]chat.User(nil), d.result...)
	}
	d.mu.Unlock()
	d.fire()
	return d.err
}

func (d *fakeDirectory) Users() []chat.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]chat.User(nil), d.users...)
}

func (d *fakeDirectory) Self() (chat.User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.self, d.hasSelf
}

func (d *fakeDirectory) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

func (d *fakeDirectory) Subscribe(fn func()) func() { return d.subscribe(fn) }

func (d *fakeDirectory) refreshCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refreshs
}

type fakePresence struct {
	observers
	mu     sync.Mutex
	online []chat.UserID
}

func (p *fakePresence) Online() []chat.UserID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]chat.UserID(nil), p.online...)
}

func (p *fakePresence) Subscribe(fn func()) func() { return p.subscribe(fn) }

func (p *fakePresence) set(ids ...chat.UserID) {
	p.mu.Lock()
	p.online = ids
	p.mu.Unlock()
	p.fire()
}

type fakeMessages struct {
	release chan struct{}
	msgs    []chat.Message
	err     error

	mu      sync.Mutex
	calls   int
	localID chat.UserID
}

func (m *fakeMessages) Messages(ctx context.Context, localID chat.UserID) ([]chat.Message, error) {
	m.mu.Lock()
	m.calls++
	m.localID = localID
	m.mu.Unlock()
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			// Late delivery after cancellation must be ignored by the engine.
			return m.msgs, nil
		}
	}
	return m.msgs, m.err
}

func (m *fakeMessages) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type fakeSelection struct {
	observers
	mu       sync.Mutex
	selected chat.UserID
}

func (s *fakeSelection) Select(id chat.UserID) {
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
	s.fire()
}

func (s *fakeSelection) Selected() (chat.UserID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != ""
}

func (s *fakeSelection) Subscribe(fn func()) func() { return s.subscribe(fn) }

type engineFixture struct {
	dir      *fakeDirectory
	presence *fakePresence
	msgs     *fakeMessages
	sel      *fakeSelection
	engine   *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		dir: &fakeDirectory{
			self:    chat.User{ID: "me", FullName: "Me"},
			hasSelf: true,
			result:  directoryFixture(),
		},
		presence: &fakePresence{},
		msgs: &fakeMessages{msgs: []chat.Message{
			{SenderID: "me", ReceiverID: "a"},
			{SenderID: "c", ReceiverID: "me"},
		}},
		sel: &fakeSelection{},
	}
	engine, err := NewEngine(EngineConfig{
		Directory: f.dir,
		Presence:  f.presence,
		Messages:  f.msgs,
		Selection: f.sel,
	})
	require.NoError(t, err)
	f.engine = engine
	t.Cleanup(engine.Unmount)
	return f
}

func waitForRows(t *testing.T, e *Engine, want ...chat.UserID) {
	t.Helper()
	require.Eventually(t, func() bool {
		got := ids(e.View().Users())
		if len(got) != len(want) {
			return false
		}
		for i := range got {
			if got[i] != want[i] {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)
}

func TestNewEngineRequiresDirectory(t *testing.T) {
	_, err := NewEngine(EngineConfig{})
	require.Error(t, err)
}

func TestEngineMountLoadsDirectoryAndMessages(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.Mount(context.Background())

	waitForRows(t, f.engine, "a", "c")
	require.Equal(t, chat.UserID("me"), f.msgs.localID)
	require.Equal(t, 1, f.dir.refreshCount())
	require.Equal(t, FilterState{}, f.engine.Filter())
}

func TestEngineRendersLoadingWhileDirectoryOutstanding(t *testing.T) {
	f := newEngineFixture(t)
	f.dir.release = make(chan struct{})
	f.engine.Mount(context.Background())

	require.Eventually(t, func() bool { return f.engine.View().Loading }, time.Second, 5*time.Millisecond)
	require.True(t, f.engine.View().Empty())

	close(f.dir.release)
	waitForRows(t, f.engine, "a", "c")
	require.False(t, f.engine.View().Loading)
}

func TestEngineListIsEmptyUntilMessagesArrive(t *testing.T) {
	f := newEngineFixture(t)
	f.msgs.release = make(chan struct{})
	f.engine.Mount(context.Background())

	require.Eventually(t, func() bool {
		view := f.engine.View()
		return !view.Loading && view.MessagesLoading
	}, time.Second, 5*time.Millisecond)
	require.True(t, f.engine.View().Empty())

	f.engine.Dispatch(SetSearch{Query: "bruno"})
	require.Equal(t, []chat.UserID{"b"}, ids(f.engine.View().Users()))
	f.engine.Dispatch(ClearSearch{})

	close(f.msgs.release)
	waitForRows(t, f.engine, "a", "c")
}

func TestEngineFilterChangesNeverRefetch(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.Mount(context.Background())
	waitForRows(t, f.engine, "a", "c")

	f.engine.Dispatch(AppendSearch{Text: "cle"})
	f.engine.Dispatch(ToggleOnlineOnly{})
	f.engine.Dispatch(ToggleOnlineOnly{})
	f.engine.Dispatch(BackspaceSearch{})

	require.Equal(t, "cl", f.engine.Filter().SearchQuery)
	require.Equal(t, 1, f.dir.refreshCount())
	require.Equal(t, 1, f.msgs.callCount())
}

func TestEngineRecomputesOnPresenceChange(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.Mount(context.Background())
	waitForRows(t, f.engine, "a", "c")

	f.engine.Dispatch(SetOnlineOnly{Enabled: true})
	require.True(t, f.engine.View().Empty())

	fired := make(chan View, 16)
	cancel := f.engine.Subscribe(func(v View) {
		select {
		case fired <- v:
		default:
		}
	})
	defer cancel()

	f.presence.set("me", "c", "ghost")
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("presence change did not notify")
	}
	view := f.engine.View()
	require.Equal(t, []chat.UserID{"c"}, ids(view.Users()))
	require.Equal(t, 2, view.OnlineCount)
	require.True(t, view.Rows[0].Online)
}

func TestEnginePresenceBeforeDirectoryIsInert(t *testing.T) {
	f := newEngineFixture(t)
	f.dir.release = make(chan struct{})
	f.presence.set("a", "zed")
	f.engine.Mount(context.Background())
	f.engine.Dispatch(SetOnlineOnly{Enabled: true})

	require.True(t, f.engine.View().Empty())
	close(f.dir.release)
	waitForRows(t, f.engine, "a")
}

func TestEngineSelectDoesNotTouchFilter(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.Mount(context.Background())
	waitForRows(t, f.engine, "a", "c")
	f.engine.Dispatch(SetSearch{Query: "c"})

	f.engine.Select("c")
	view := f.engine.View()
	require.Equal(t, chat.UserID("c"), view.Selected)
	require.Equal(t, "c", view.Filter.SearchQuery)
	require.Equal(t, 1, f.msgs.callCount())
}

func TestEngineFetchFailuresBecomeNotices(t *testing.T) {
	f := newEngineFixture(t)
	f.msgs.err = errors.New("boom")
	f.engine.Mount(context.Background())

	require.Eventually(t, func() bool { return f.engine.View().Notice != "" }, time.Second, 5*time.Millisecond)
	view := f.engine.View()
	require.Contains(t, view.Notice, "boom")
	require.True(t, view.Empty())

	f.engine.Dispatch(SetSearch{Query: "alice"})
	require.Equal(t, []chat.UserID{"a"}, ids(f.engine.View().Users()))
}

func TestEngineDirectoryFailureBecomesNotice(t *testing.T) {
	f := newEngineFixture(t)
	f.dir.err = errors.New("directory down")
	f.engine.Mount(context.Background())

	require.Eventually(t, func() bool { return f.engine.View().Notice != "" }, time.Second, 5*time.Millisecond)
	require.Contains(t, f.engine.View().Notice, "directory down")
	require.True(t, f.engine.View().Empty())
}

func TestEngineWithoutIdentityShowsNoContacts(t *testing.T) {
	f := newEngineFixture(t)
	f.dir.hasSelf = false
	f.dir.self = chat.User{}
	f.engine.Mount(context.Background())

	require.Eventually(t, func() bool { return f.msgs.callCount() == 1 && !f.engine.View().MessagesLoading }, time.Second, 5*time.Millisecond)
	require.True(t, f.engine.View().Empty())
}

func TestEngineUnmountDiscardsLateResults(t *testing.T) {
	f := newEngineFixture(t)
	f.msgs.release = make(chan struct{})
	f.engine.Mount(context.Background())
	require.Eventually(t, func() bool { return f.msgs.callCount() == 1 }, time.Second, 5*time.Millisecond)

	f.engine.Unmount()
	require.False(t, f.engine.Mounted())
	require.Zero(t, f.presence.count())
	require.Zero(t, f.sel.count())
	require.Zero(t, f.dir.count())

	time.Sleep(20 * time.Millisecond)
	view := f.engine.View()
	require.True(t, view.Empty())
	require.False(t, view.MessagesLoading)

	f.engine.Dispatch(SetSearch{Query: "alice"})
	require.Equal(t, "", f.engine.Filter().SearchQuery)
}

func TestEngineRemountResetsFilter(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.Mount(context.Background())
	waitForRows(t, f.engine, "a", "c")
	f.engine.Dispatch(SetSearch{Query: "x"})
	f.engine.Dispatch(SetOnlineOnly{Enabled: true})

	f.engine.Unmount()
	f.engine.Mount(context.Background())
	require.Equal(t, DefaultFilterState(), f.engine.Filter())
	waitForRows(t, f.engine, "a", "c")
}

func TestEngineSubscribeCancel(t *testing.T) {
	f := newEngineFixture(t)
	calls := 0
	cancel := f.engine.Subscribe(func(View) { calls++ })

	f.engine.notify()
	require.Equal(t, 1, calls)

	cancel()
	cancel()
	f.engine.notify()
	require.Equal(t, 1, calls)
	require.NotNil(t, f.engine.Subscribe(nil))
}

func TestEngineDeliversLatestViewLast(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.Mount(context.Background())
	waitForRows(t, f.engine, "a", "c")

	var (
		mu       sync.Mutex
		last     View
		inFlight int
		overlap  bool
	)
	cancel := f.engine.Subscribe(func(v View) {
		mu.Lock()
		inFlight++
		if inFlight > 1 {
			overlap = true
		}
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		last = v
		inFlight--
		mu.Unlock()
	})
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				f.presence.set("me", "a")
			} else {
				f.presence.set("me", "c")
			}
		}(i)
		go func() {
			defer wg.Done()
			f.engine.Dispatch(ToggleOnlineOnly{})
		}()
	}
	wg.Wait()
	f.presence.set("me", "c")

	want := f.engine.View()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return inFlight == 0 && last.Filter == want.Filter && len(last.Rows) == len(want.Rows)
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.False(t, overlap, "observer called concurrently")
	require.Equal(t, want, last)
}

func TestEngineObserverMayDispatch(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.Mount(context.Background())
	waitForRows(t, f.engine, "a", "c")

	var (
		once sync.Once
		mu   sync.Mutex
		seen []View
	)
	cancel := f.engine.Subscribe(func(v View) {
		once.Do(func() { f.engine.Dispatch(SetSearch{Query: "cleo"}) })
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})
	defer cancel()

	f.engine.notify()
	require.Equal(t, "cleo", f.engine.Filter().SearchQuery)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 2 && seen[len(seen)-1].Filter.SearchQuery == "cleo"
	}, time.Second, 5*time.Millisecond)
}
