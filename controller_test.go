package main

import (
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"lyricon/central"
	"lyricon/models"
)

type fakePublisher struct {
	frames chan *models.Frame
	exited atomic.Bool
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{frames: make(chan *models.Frame, 64)}
}

func (*fakePublisher) ID() string { return "fake" }

func (p *fakePublisher) Send(f *models.Frame) error {
	p.frames <- f
	return nil
}

func (p *fakePublisher) Exit() error {
	p.exited.Store(true)
	return nil
}

func (p *fakePublisher) drain() []string {
	var out []string
	for {
		select {
		case f := <-p.frames:
			out = append(out, f.Kind.String()+" "+f.Text)
		default:
			return out
		}
	}
}

type testClock struct {
	ms atomic.Int64
}

func (c *testClock) now() time.Time {
	return time.UnixMilli(c.ms.Load())
}

func (c *testClock) advance(ms int64) {
	c.ms.Add(ms)
}

func newTestController(filters []string, offsets ...int64) (*Controller, []*fakePublisher, *testClock) {
	return newTestControllerWith(nil, filters, offsets...)
}

func newTestControllerWith(active ActiveSource, filters []string, offsets ...int64) (*Controller, []*fakePublisher, *testClock) {
	clock := &testClock{}
	clock.ms.Store(1_000_000)
	fakes := make([]*fakePublisher, len(offsets))
	entries := make([]*PublisherEntry, len(offsets))
	for i, offset := range offsets {
		fakes[i] = newFakePublisher()
		entries[i] = NewPublisherEntry(fakes[i], offset)
	}
	c := NewController(&ControllerOptions{
		publishers:   entries,
		showTitle:    true,
		filters:      filters,
		tickInterval: time.Hour,
		active:       active,
	})
	c.now = clock.now
	return c, fakes, clock
}

func testSong() *models.Song {
	return (&models.Song{
		Name:   "x",
		Artist: "artist",
		Lyrics: []*models.LyricLine{
			{Begin: 0, End: 999, Text: "a"},
			{Begin: 1000, End: 1999, Text: "b"},
			{Begin: 3000, End: 3999, Text: "c"},
		},
	}).Normalize()
}

func TestControllerPlayback(t *testing.T) {
	c, fakes, clock := newTestController(nil, 0, 500)

	c.OnActiveProviderChanged(&models.ProviderInfo{ProviderPackageName: "p", PlayerPackageName: "a"})
	c.OnSongChanged(testSong())
	c.OnSeekTo(500)
	c.OnPlaybackStateChanged(true)

	clock.advance(600)
	c.tick()
	clock.advance(100)
	c.tick()
	clock.advance(1000)
	c.tick()
	clock.advance(1000)
	c.tick()

	c.OnPlaybackStateChanged(false)
	c.OnPostText("hello")
	c.Exit()

	want := [][]string{
		{"clear ", "text x - artist", "line a", "line b", "line c", "clear ", "text hello", "exit "},
		{"clear ", "text x - artist", "line b", "line c", "clear ", "text hello", "exit "},
	}
	for i, f := range fakes {
		if got := f.drain(); !slices.Equal(got, want[i]) {
			t.Errorf("publisher %d: got %q\nwant %q", i, got, want[i])
		}
		if !f.exited.Load() {
			t.Errorf("publisher %d not closed", i)
		}
	}
}

func TestControllerFilters(t *testing.T) {
	c, fakes, _ := newTestController([]string{"作词"}, 0)
	song := testSong()
	song.Lyrics[0].Text = "作词 : someone"

	c.OnSongChanged(song)
	c.OnPlaybackStateChanged(true)
	c.OnSeekTo(1200)
	c.Exit()

	want := []string{"text x - artist", "text x - artist", "line b", "exit "}
	if got := fakes[0].drain(); !slices.Equal(got, want) {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestControllerProviderGone(t *testing.T) {
	c, fakes, clock := newTestController(nil, 0)

	c.OnSongChanged(testSong())
	c.OnPlaybackStateChanged(true)
	c.OnActiveProviderChanged(nil)
	clock.advance(1500)
	c.tick()
	c.OnPositionChanged(1500)
	c.Exit()

	want := []string{"text x - artist", "line a", "clear ", "exit "}
	if got := fakes[0].drain(); !slices.Equal(got, want) {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestControllerSongWithoutLyrics(t *testing.T) {
	c, fakes, _ := newTestController(nil, 0)

	c.OnPlaybackStateChanged(true)
	c.OnSongChanged(&models.Song{Name: "plain"})
	c.OnPositionChanged(100)
	c.OnSongChanged(nil)
	c.Exit()

	want := []string{"text plain", "clear ", "exit "}
	if got := fakes[0].drain(); !slices.Equal(got, want) {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestControllerFollowsPlayingProvider(t *testing.T) {
	d := central.NewDispatcher()
	c, fakes, clock := newTestControllerWith(d, nil, 0)
	d.AddListener(c)
	m := central.NewProviderManager(d)

	a, err := m.Register(models.ProviderInfo{ProviderPackageName: "mpris", PlayerPackageName: "a"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Register(models.ProviderInfo{ProviderPackageName: "mpris", PlayerPackageName: "b"})
	if err != nil {
		t.Fatal(err)
	}
	a.Player().SetPlaybackState(true)
	b.Player().SetSong(testSong())
	b.Player().SetPlaybackState(true)

	a.Disconnect()
	b.Player().UpdatePosition(1500)
	clock.advance(1600)
	c.tick()
	c.Exit()

	want := []string{"clear ", "clear ", "clear ", "line a", "line b", "line c", "exit "}
	if got := fakes[0].drain(); !slices.Equal(got, want) {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}
