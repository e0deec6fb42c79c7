package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"lyricon/central"
	"lyricon/models"
	"lyricon/utils"
)

const (
	mprisPrefix    = "org.mpris.MediaPlayer2."
	mprisPath      = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	playerIface    = "org.mpris.MediaPlayer2.Player"
	propsChanged   = "org.freedesktop.DBus.Properties.PropertiesChanged"
	seeked         = "org.mpris.MediaPlayer2.Player.Seeked"
	ownerChanged   = "org.freedesktop.DBus.NameOwnerChanged"
	debounceWindow = 20 * time.Millisecond
)

// MPRIS tracks every MPRIS player on the session bus. Each bus name is
// registered as its own provider.
type MPRIS struct {
	conn         *dbus.Conn
	registry     Registry
	pollInterval time.Duration
	urlMatcher   *utils.Matcher

	mu      sync.Mutex
	players map[string]*mprisPlayer // by unique owner name
}

type MPRISOptions struct {
	PollInterval time.Duration
	// Tracks whose xesam:url contains any of these are reported as no song.
	URLBlacklist []string
}

func NewMPRIS(conn *dbus.Conn, registry Registry, opt *MPRISOptions) *MPRIS {
	interval := opt.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	var urlMatcher *utils.Matcher
	if len(opt.URLBlacklist) > 0 {
		urlMatcher = utils.NewStringMatcher(opt.URLBlacklist)
	}
	return &MPRIS{
		conn:         conn,
		registry:     registry,
		pollInterval: interval,
		urlMatcher:   urlMatcher,
		players:      make(map[string]*mprisPlayer),
	}
}

func (*MPRIS) ID() string {
	return MPRISProviderID
}

func (m *MPRIS) Serve(ctx context.Context) error {
	matches := [][]dbus.MatchOption{
		{
			dbus.WithMatchPathNamespace("/org/mpris/MediaPlayer2"),
			dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
			dbus.WithMatchMember("PropertiesChanged"),
		},
		{
			dbus.WithMatchPathNamespace("/org/mpris/MediaPlayer2"),
			dbus.WithMatchInterface(playerIface),
			dbus.WithMatchMember("Seeked"),
		},
		{
			dbus.WithMatchSender("org.freedesktop.DBus"),
			dbus.WithMatchInterface("org.freedesktop.DBus"),
			dbus.WithMatchMember("NameOwnerChanged"),
			dbus.WithMatchArg0Namespace("org.mpris.MediaPlayer2"),
		},
	}
	for _, opts := range matches {
		if err := m.conn.AddMatchSignal(opts...); err != nil {
			return fmt.Errorf("%w: add match signal: %w", ErrUnavailable, err)
		}
	}

	c := make(chan *dbus.Signal, 16)
	m.conn.Signal(c)
	defer m.conn.RemoveSignal(c)
	defer m.removeAll()

	m.discover()
	for {
		select {
		case <-ctx.Done():
			return nil
		case signal, ok := <-c:
			if !ok {
				return nil
			}
			if err := m.handle(signal); err != nil {
				slog.Debug("signal ignored", "error", err, "name", signal.Name, "sender", signal.Sender)
			}
		}
	}
}

func (m *MPRIS) discover() {
	var names []string
	obj := m.conn.BusObject()
	if err := obj.Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		slog.Warn("failed to list bus names", "error", err)
		return
	}
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}
		var owner string
		if err := obj.Call("org.freedesktop.DBus.GetNameOwner", 0, name).Store(&owner); err != nil {
			slog.Warn("failed to get name owner", "error", err, "name", name)
			continue
		}
		m.add(name, owner)
	}
}

func (m *MPRIS) handle(signal *dbus.Signal) error {
	switch signal.Name {
	case ownerChanged:
		var name, oldOwner, newOwner string
		if err := dbus.Store(signal.Body, &name, &oldOwner, &newOwner); err != nil {
			return fmt.Errorf("%w: %w", ErrBadSignal, err)
		}
		if !strings.HasPrefix(name, mprisPrefix) {
			return nil
		}
		if oldOwner != "" {
			m.remove(oldOwner)
		}
		if newOwner != "" {
			m.add(name, newOwner)
		}
	case propsChanged:
		if len(signal.Body) < 2 {
			return ErrBadSignal
		}
		iface, _ := signal.Body[0].(string)
		changed, ok := signal.Body[1].(map[string]dbus.Variant)
		if iface != playerIface || !ok {
			return nil
		}
		if p := m.lookup(signal.Sender); p != nil {
			p.onPropertiesChanged(changed)
		}
	case seeked:
		if len(signal.Body) == 0 {
			return ErrBadSignal
		}
		position, ok := signal.Body[0].(int64)
		if !ok {
			return ErrBadSignal
		}
		if p := m.lookup(signal.Sender); p != nil {
			p.player().SeekTo(position / 1000)
		}
	}
	return nil
}

func (m *MPRIS) lookup(owner string) *mprisPlayer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.players[owner]
}

func (m *MPRIS) add(name, owner string) {
	m.mu.Lock()
	if _, ok := m.players[owner]; ok {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	provider, err := m.registry.Register(models.ProviderInfo{
		ProviderPackageName: MPRISProviderID,
		PlayerPackageName:   name,
	})
	if err != nil {
		slog.Warn("failed to register player", "error", err, "name", name)
		return
	}
	p := newMPRISPlayer(provider, m.conn.Object(name, mprisPath), m.pollInterval)
	p.urlMatcher = m.urlMatcher

	m.mu.Lock()
	m.players[owner] = p
	m.mu.Unlock()
	slog.Info("mpris player appeared", "name", name)
	p.fetch()
}

func (m *MPRIS) remove(owner string) {
	m.mu.Lock()
	p, ok := m.players[owner]
	delete(m.players, owner)
	m.mu.Unlock()
	if !ok {
		return
	}
	p.stop()
	m.registry.Unregister(p.provider.Info())
	slog.Info("mpris player vanished", "name", p.provider.Info().PlayerPackageName)
}

func (m *MPRIS) removeAll() {
	m.mu.Lock()
	owners := make([]string, 0, len(m.players))
	for owner := range m.players {
		owners = append(owners, owner)
	}
	m.mu.Unlock()
	for _, owner := range owners {
		m.remove(owner)
	}
}

// mprisPlayer mirrors one MPRIS player into its central player.
type mprisPlayer struct {
	provider     *central.Provider
	obj          dbus.BusObject
	pollInterval time.Duration
	urlMatcher   *utils.Matcher

	mu         sync.Mutex
	props      models.MPRISProperties
	applied    models.MPRISProperties
	debouncer  *time.Timer
	cancelPoll context.CancelFunc
	stopped    bool
}

func newMPRISPlayer(provider *central.Provider, obj dbus.BusObject, pollInterval time.Duration) *mprisPlayer {
	return &mprisPlayer{
		provider:     provider,
		obj:          obj,
		pollInterval: pollInterval,
	}
}

func (p *mprisPlayer) player() *central.Player {
	return p.provider.Player()
}

func (p *mprisPlayer) fetch() {
	call := p.obj.Call("org.freedesktop.DBus.Properties.GetAll", 0, playerIface)
	if call.Err != nil || len(call.Body) == 0 {
		slog.Warn("failed to get properties", "error", call.Err, "name", p.provider.Info().PlayerPackageName)
		return
	}
	all, ok := call.Body[0].(map[string]dbus.Variant)
	if !ok {
		return
	}
	props := parseProperties(all)
	p.mu.Lock()
	p.props = props
	p.mu.Unlock()
	if props.Position > 0 {
		p.player().SeekTo(props.Position)
	}
	p.apply(props)
}

// Some players need more than one signal to fully update the metadata, so
// changes are applied once they settle.
func (p *mprisPlayer) onPropertiesChanged(changed map[string]dbus.Variant) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	mergeProperties(&p.props, changed)
	props := p.props.Clone()
	if p.debouncer != nil {
		p.debouncer.Stop()
	}
	p.debouncer = time.AfterFunc(debounceWindow, func() { p.apply(props) })
}

func (p *mprisPlayer) apply(props models.MPRISProperties) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	last := p.applied
	p.applied = props
	p.mu.Unlock()

	name := p.provider.Info().PlayerPackageName
	switch {
	case !utils.SameTrack(&props.Metadata, &last.Metadata):
		slog.Info("track changed", "track", utils.FormatTrack(&props.Metadata), "name", name)
		p.player().SetSong(p.song(&props.Metadata))
	case props.Metadata.Text != last.Metadata.Text:
		// players may publish xesam:asText well after the title
		slog.Info("lyrics changed", "track", utils.FormatTrack(&props.Metadata), "name", name)
		player := p.player()
		player.SetSong(p.song(&props.Metadata))
		player.SeekTo(player.Position())
	}
	if props.PlaybackStatus != last.PlaybackStatus {
		playing := props.PlaybackStatus == models.PlaybackStatusPlaying
		p.player().SetPlaybackState(playing)
		if playing {
			p.startPolling()
		} else {
			p.stopPolling()
		}
	}
}

func (p *mprisPlayer) song(meta *models.MPRISMetadata) *models.Song {
	if p.urlMatcher != nil && p.urlMatcher.ContainsString(meta.URL) {
		slog.Info("blacklisted", "url", meta.URL)
		return nil
	}
	return utils.SongFromMetadata(meta)
}

func (p *mprisPlayer) startPolling() {
	if p.obj == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	if p.cancelPoll != nil {
		p.cancelPoll()
	}
	p.cancelPoll = cancel
	p.mu.Unlock()

	go func() {
		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()
		p.poll()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !p.poll() {
					return
				}
			}
		}
	}()
}

func (p *mprisPlayer) poll() bool {
	var position int64
	err := p.obj.Call("org.freedesktop.DBus.Properties.Get", 0, playerIface, "Position").Store(&position)
	if err != nil {
		slog.Warn("failed to get position", "error", err, "name", p.provider.Info().PlayerPackageName)
		return false
	}
	p.player().UpdatePosition(position / 1000)
	return true
}

func (p *mprisPlayer) stopPolling() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelPoll != nil {
		p.cancelPoll()
		p.cancelPoll = nil
	}
}

func (p *mprisPlayer) stop() {
	p.stopPolling()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.debouncer != nil {
		p.debouncer.Stop()
		p.debouncer = nil
	}
}

func parsePlaybackStatus(ps string) models.PlaybackStatus {
	switch ps {
	case "Playing":
		return models.PlaybackStatusPlaying
	case "Paused":
		return models.PlaybackStatusPaused
	case "Stopped":
		return models.PlaybackStatusStopped
	}
	return models.PlaybackStatusUnknown
}

func parseMetadata(m map[string]dbus.Variant) models.MPRISMetadata {
	meta := models.MPRISMetadata{}
	if id, ok := m["mpris:trackid"]; ok {
		switch v := id.Value().(type) {
		case dbus.ObjectPath:
			meta.TrackID = string(v)
		case string:
			meta.TrackID = v
		}
	}
	if title, ok := m["xesam:title"].Value().(string); ok {
		meta.Title = strings.TrimSpace(title)
	}
	if artists, ok := m["xesam:artist"].Value().([]string); ok {
		meta.Artists = artists
	}
	if album, ok := m["xesam:album"].Value().(string); ok {
		meta.Album = strings.TrimSpace(album)
	}
	if text, ok := m["xesam:asText"].Value().(string); ok {
		meta.Text = text
	}
	if url, ok := m["xesam:url"].Value().(string); ok {
		meta.URL = url
	}
	if length, ok := m["mpris:length"]; ok {
		switch v := length.Value().(type) {
		case int64:
			meta.Duration = time.Duration(v) * time.Microsecond
		case uint64:
			meta.Duration = time.Duration(v) * time.Microsecond
		}
	}
	return meta
}

func mergeProperties(props *models.MPRISProperties, p map[string]dbus.Variant) {
	if metadata, ok := p["Metadata"].Value().(map[string]dbus.Variant); ok {
		props.Metadata = parseMetadata(metadata)
	}
	if position, ok := p["Position"].Value().(int64); ok {
		props.Position = position / 1000
	}
	if status, ok := p["PlaybackStatus"].Value().(string); ok {
		props.PlaybackStatus = parsePlaybackStatus(status)
	}
}

func parseProperties(p map[string]dbus.Variant) models.MPRISProperties {
	props := models.MPRISProperties{}
	mergeProperties(&props, p)
	return props
}
