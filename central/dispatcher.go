package central

import (
	"log/slog"
	"sync"

	"lyricon/models"
)

type eventType int

const (
	eventSongChanged eventType = iota + 1
	eventPlaybackStateChanged
	eventPositionChanged
	eventSeekTo
	eventPostText
)

var eventNames = map[eventType]string{
	eventSongChanged:          "song",
	eventPlaybackStateChanged: "playback",
	eventPositionChanged:      "position",
	eventSeekTo:               "seek",
	eventPostText:             "text",
}

type activeProvider struct {
	info    *models.ProviderInfo
	playing bool
}

// Dispatcher decides which registered player is active and relays only that
// player's events to its listeners.
//
// A player becomes active when nothing is active yet, or when the active
// player is not playing, as soon as it reports that it plays. On a switch the
// listeners get OnActiveProviderChanged followed by the new player's last
// text, or its last song and position.
//
// Events are handled one at a time, in arrival order. Listeners run without
// any lock held. A listener may call Active, and events it feeds back are
// handled once the current event and its replay are delivered.
type Dispatcher struct {
	mu        sync.RWMutex
	active    activeProvider
	listeners *Set[ActivePlayerListener]

	qmu      sync.Mutex
	queue    []func()
	draining bool
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		listeners: NewComparableSet[ActivePlayerListener](),
	}
}

func (d *Dispatcher) AddListener(l ActivePlayerListener) {
	d.listeners.Add(l)
	slog.Debug("listener added", "total", d.listeners.Len())
}

func (d *Dispatcher) RemoveListener(l ActivePlayerListener) {
	d.listeners.Remove(l)
	slog.Debug("listener removed", "total", d.listeners.Len())
}

func (d *Dispatcher) ClearListeners() {
	d.listeners.Clear()
}

// Active returns a copy of the active provider, or nil.
func (d *Dispatcher) Active() (*models.ProviderInfo, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.active.info == nil {
		return nil, false
	}
	info := d.active.info.Clone()
	return &info, d.active.playing
}

func (d *Dispatcher) OnSongChanged(p *Player, song *models.Song) {
	d.handle(eventSongChanged, p, func(l ActivePlayerListener) { l.OnSongChanged(song) })
}

func (d *Dispatcher) OnPlaybackStateChanged(p *Player, playing bool) {
	d.handle(eventPlaybackStateChanged, p, func(l ActivePlayerListener) { l.OnPlaybackStateChanged(playing) })
}

func (d *Dispatcher) OnPositionChanged(p *Player, position int64) {
	d.handle(eventPositionChanged, p, func(l ActivePlayerListener) { l.OnPositionChanged(position) })
}

func (d *Dispatcher) OnSeekTo(p *Player, position int64) {
	d.handle(eventSeekTo, p, func(l ActivePlayerListener) { l.OnSeekTo(position) })
}

func (d *Dispatcher) OnPostText(p *Player, text string) {
	d.handle(eventPostText, p, func(l ActivePlayerListener) { l.OnPostText(text) })
}

// Forget clears the active provider if it is info. Called when a provider
// is unregistered.
func (d *Dispatcher) Forget(info *models.ProviderInfo) {
	d.run(func() { d.forget(info) })
}

func (d *Dispatcher) forget(info *models.ProviderInfo) {
	d.mu.Lock()
	cleared := d.active.info.Same(info)
	if cleared {
		d.active = activeProvider{}
	}
	d.mu.Unlock()

	if cleared {
		slog.Info("active provider gone", "provider", info)
		d.listeners.Broadcast(func(l ActivePlayerListener) { l.OnActiveProviderChanged(nil) })
	}
}

// run queues fn behind the pending work. The first caller to find the queue
// idle drains it, so a call made from inside a listener returns at once and
// its work runs after the work that triggered it.
func (d *Dispatcher) run(fn func()) {
	d.qmu.Lock()
	d.queue = append(d.queue, fn)
	if d.draining {
		d.qmu.Unlock()
		return
	}
	d.draining = true
	for len(d.queue) > 0 {
		next := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.qmu.Unlock()
		next()
		d.qmu.Lock()
	}
	d.draining = false
	d.qmu.Unlock()
}

func (d *Dispatcher) handle(ev eventType, p *Player, notify func(ActivePlayerListener)) {
	d.run(func() { d.dispatch(ev, p, notify) })
}

func (d *Dispatcher) dispatch(ev eventType, p *Player, notify func(ActivePlayerListener)) {
	state := p.state()
	d.mu.Lock()
	switched := d.checkAndSwitch(p.Info(), state.playing)
	var broadcast bool
	if switched {
		// the resync below already carries the song
		broadcast = ev != eventSongChanged
	} else {
		broadcast = d.active.info.Same(p.Info())
	}
	d.mu.Unlock()

	if switched {
		info := p.Info().Clone()
		slog.Info("active provider switched", "provider", &info)
		d.listeners.Broadcast(func(l ActivePlayerListener) { l.OnActiveProviderChanged(&info) })
		d.resync(state)
	}
	if !broadcast {
		slog.Debug("event suppressed", "event", eventNames[ev], "provider", p.Info())
		return
	}
	d.listeners.Broadcast(notify)
}

// checkAndSwitch must be called with mu held.
func (d *Dispatcher) checkAndSwitch(info *models.ProviderInfo, playing bool) bool {
	cur := &d.active
	switch {
	case cur.info == nil && playing:
	case cur.info.Same(info):
		cur.playing = playing
		return false
	case !cur.playing && playing:
	default:
		return false
	}
	d.active = activeProvider{info: info, playing: playing}
	return true
}

// resync replays the state of a player that just became active. Text and
// song are exclusive display modes, so text wins and ends the replay.
func (d *Dispatcher) resync(state playerState) {
	if state.text != "" {
		d.listeners.Broadcast(func(l ActivePlayerListener) { l.OnPostText(state.text) })
		return
	}
	if state.song != nil {
		d.listeners.Broadcast(func(l ActivePlayerListener) { l.OnSongChanged(state.song) })
	}
	if state.position > 0 {
		d.listeners.Broadcast(func(l ActivePlayerListener) { l.OnSeekTo(state.position) })
	}
}
