package central

import (
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"lyricon/models"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func (r *recorder) OnActiveProviderChanged(info *models.ProviderInfo) { r.add("active %s", info) }
func (r *recorder) OnSongChanged(song *models.Song)                   { r.add("song %s", song.Title()) }
func (r *recorder) OnPlaybackStateChanged(playing bool)               { r.add("playback %t", playing) }
func (r *recorder) OnPositionChanged(position int64)                  { r.add("position %d", position) }
func (r *recorder) OnSeekTo(position int64)                           { r.add("seek %d", position) }
func (r *recorder) OnPostText(text string)                            { r.add("text %s", text) }

type panicker struct{}

func (panicker) OnActiveProviderChanged(*models.ProviderInfo) { panic("boom") }
func (panicker) OnSongChanged(*models.Song)                   { panic("boom") }
func (panicker) OnPlaybackStateChanged(bool)                  { panic("boom") }
func (panicker) OnPositionChanged(int64)                      { panic("boom") }
func (panicker) OnSeekTo(int64)                               { panic("boom") }
func (panicker) OnPostText(string)                            { panic("boom") }

func info(player string) models.ProviderInfo {
	return models.ProviderInfo{ProviderPackageName: "test", PlayerPackageName: player}
}

func song(name string) *models.Song {
	return &models.Song{ID: name, Name: name, Artist: "artist"}
}

func setup(t *testing.T) (*Dispatcher, *ProviderManager, *recorder) {
	t.Helper()
	d := NewDispatcher()
	rec := &recorder{}
	d.AddListener(rec)
	return d, NewProviderManager(d), rec
}

func register(t *testing.T, m *ProviderManager, player string) *Player {
	t.Helper()
	p, err := m.Register(info(player))
	if err != nil {
		t.Fatal(err)
	}
	return p.Player()
}

func expect(t *testing.T, rec *recorder, want ...string) {
	t.Helper()
	if got := rec.take(); !slices.Equal(got, want) {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestFirstPlayingProviderBecomesActive(t *testing.T) {
	d, m, rec := setup(t)
	a := register(t, m, "a")

	a.SetSong(song("x"))
	expect(t, rec)

	a.SetPlaybackState(true)
	expect(t, rec, "active test/a", "song x - artist", "playback true")

	got, playing := d.Active()
	if got == nil || got.PlayerPackageName != "a" || !playing {
		t.Fatalf("active = %v, %t", got, playing)
	}
}

func TestSwitchResyncOrder(t *testing.T) {
	_, m, rec := setup(t)
	c := register(t, m, "c")

	c.SetSong(song("x"))
	c.SeekTo(5000)
	expect(t, rec)

	c.SetPlaybackState(true)
	expect(t, rec, "active test/c", "song x - artist", "seek 5000", "playback true")
}

func TestPausedProviderDoesNotSwitch(t *testing.T) {
	d, m, rec := setup(t)
	a := register(t, m, "a")
	b := register(t, m, "b")

	a.SetPlaybackState(true)
	a.SetPlaybackState(false)
	rec.take()

	b.SetSong(song("y"))
	expect(t, rec)
	if got, _ := d.Active(); got.PlayerPackageName != "a" {
		t.Fatalf("active = %v", got)
	}
}

func TestSongEventIsNotRepeatedAfterResync(t *testing.T) {
	_, m, rec := setup(t)
	a := register(t, m, "a")
	b := register(t, m, "b")

	a.SetPlaybackState(true)
	b.SetPlaybackState(true)
	a.SetPlaybackState(false)
	rec.take()

	b.SetSong(song("y"))
	expect(t, rec, "active test/b", "song y - artist")
}

func TestPlayingProviderIsNotPreempted(t *testing.T) {
	d, m, rec := setup(t)
	a := register(t, m, "a")
	b := register(t, m, "b")

	a.SetPlaybackState(true)
	rec.take()

	b.SetSong(song("y"))
	b.SetPlaybackState(true)
	b.SeekTo(100)
	b.UpdatePosition(200)
	b.SendText("hi")
	expect(t, rec)

	if got, _ := d.Active(); got.PlayerPackageName != "a" {
		t.Fatalf("active = %v", got)
	}
	a.UpdatePosition(300)
	expect(t, rec, "position 300")
}

func TestSwitchWhenActivePaused(t *testing.T) {
	_, m, rec := setup(t)
	a := register(t, m, "a")
	b := register(t, m, "b")

	a.SetPlaybackState(true)
	a.SetPlaybackState(false)
	b.SendText("hello")
	b.SetSong(song("ignored"))
	b.SendText("now playing")
	rec.take()

	b.SetPlaybackState(true)
	expect(t, rec, "active test/b", "text now playing", "playback true")
}

func TestActiveProviderEventsPassThrough(t *testing.T) {
	_, m, rec := setup(t)
	a := register(t, m, "a")

	a.SetSong(song("x"))
	a.SetPlaybackState(true)
	rec.take()
	a.SetPlaybackState(false)
	expect(t, rec, "playback false")

	b := register(t, m, "b")
	b.SetPlaybackState(true)
	rec.take()

	b.SeekTo(700)
	expect(t, rec, "seek 700")
}

func TestForgetActiveProvider(t *testing.T) {
	d, m, rec := setup(t)
	a := register(t, m, "a")
	b := register(t, m, "b")

	a.SetPlaybackState(true)
	b.SetPlaybackState(true)
	rec.take()

	if !m.Unregister(a.Info()) {
		t.Fatal("unregister failed")
	}
	expect(t, rec, "active <nil>")
	if got, _ := d.Active(); got != nil {
		t.Fatalf("active = %v", got)
	}

	b.UpdatePosition(10)
	expect(t, rec, "active test/b", "seek 10", "position 10")
}

func TestForgetInactiveProvider(t *testing.T) {
	_, m, rec := setup(t)
	a := register(t, m, "a")
	b := register(t, m, "b")

	a.SetPlaybackState(true)
	rec.take()

	m.Unregister(b.Info())
	expect(t, rec)
	if m.Unregister(b.Info()) {
		t.Fatal("second unregister succeeded")
	}
}

func TestRegisterValidation(t *testing.T) {
	_, m, _ := setup(t)
	if _, err := m.Register(models.ProviderInfo{ProviderPackageName: "x"}); err != ErrInvalidProvider {
		t.Fatalf("err = %v", err)
	}
	register(t, m, "a")
	if _, err := m.Register(info("a")); err != ErrDuplicateProvider {
		t.Fatalf("err = %v", err)
	}
	if len(m.Providers()) != 1 {
		t.Fatalf("providers = %d", len(m.Providers()))
	}
}

func TestListenerPanicIsIsolated(t *testing.T) {
	d := NewDispatcher()
	first, last := &recorder{}, &recorder{}
	d.AddListener(first)
	d.AddListener(panicker{})
	d.AddListener(last)

	m := NewProviderManager(d)
	a := register(t, m, "a")
	a.SetPlaybackState(true)

	want := []string{"active test/a", "playback true"}
	if got := first.take(); !slices.Equal(got, want) {
		t.Fatalf("first got %q", got)
	}
	if got := last.take(); !slices.Equal(got, want) {
		t.Fatalf("last got %q", got)
	}
}

type activeReader struct {
	recorder
	d *Dispatcher
}

func (r *activeReader) OnActiveProviderChanged(info *models.ProviderInfo) {
	got, _ := r.d.Active()
	r.add("active %s", got)
}

func TestListenerMayReadActive(t *testing.T) {
	d := NewDispatcher()
	r := &activeReader{d: d}
	d.AddListener(r)
	a := register(t, NewProviderManager(d), "a")

	a.SetPlaybackState(true)
	if got := r.take(); !slices.Equal(got, []string{"active test/a", "playback true"}) {
		t.Fatalf("got %q", got)
	}
}

type reentrant struct {
	recorder
	onActive func(*models.ProviderInfo)
	onText   func(string)
}

func (r *reentrant) OnActiveProviderChanged(info *models.ProviderInfo) {
	if r.onActive != nil {
		r.onActive(info)
	}
}

func (r *reentrant) OnPostText(text string) {
	if r.onText != nil {
		r.onText(text)
	}
}

func withTimeout(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher blocked on a nested call")
	}
}

func TestListenerMayFeedEventsBack(t *testing.T) {
	d, m, rec := setup(t)
	a := register(t, m, "a")
	b := register(t, m, "b")
	l := &reentrant{}
	l.onActive = func(info *models.ProviderInfo) {
		if info != nil && info.PlayerPackageName == "a" {
			a.UpdatePosition(42)
			b.UpdatePosition(7)
		}
	}
	d.AddListener(l)

	withTimeout(t, func() { a.SetPlaybackState(true) })
	expect(t, rec, "active test/a", "playback true", "position 42")
}

func TestListenerMayUnregister(t *testing.T) {
	d, m, rec := setup(t)
	a := register(t, m, "a")
	l := &reentrant{}
	l.onText = func(string) { m.Unregister(a.Info()) }
	d.AddListener(l)

	a.SetPlaybackState(true)
	rec.take()
	withTimeout(t, func() { a.SendText("bye") })
	expect(t, rec, "text bye", "active <nil>")
	if got, _ := d.Active(); got != nil {
		t.Fatalf("active = %v", got)
	}
}

func TestConcurrentEvents(t *testing.T) {
	d, m, _ := setup(t)
	players := make([]*Player, 8)
	for i := range players {
		players[i] = register(t, m, fmt.Sprint(i))
	}

	var wg sync.WaitGroup
	for _, p := range players {
		wg.Go(func() {
			for i := range 200 {
				p.SetPlaybackState(i%2 == 0)
				p.UpdatePosition(int64(i))
				d.Active()
			}
		})
	}
	wg.Wait()
}
