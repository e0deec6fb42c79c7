package main

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"lyricon/models"
	"lyricon/publishers"
	"lyricon/utils"
)

type PublisherEntry struct {
	publishers.Publisher
	ch     chan *models.Frame
	done   chan struct{}
	Offset int64

	navigator *models.Navigator[*models.LyricLine]
	sent      []*models.LyricLine
}

func NewPublisherEntry(publisher publishers.Publisher, offset int64) *PublisherEntry {
	p := &PublisherEntry{
		Publisher: publisher,
		ch:        make(chan *models.Frame, 16),
		done:      make(chan struct{}),
		Offset:    offset,
	}
	go func() {
		defer close(p.done)
		for frame := range p.ch {
			err := p.Publisher.Send(frame)
			if err != nil {
				slog.Error("failed to send", "error", err, "publisher", p.ID(), "kind", frame.Kind)
			}
		}
	}()
	return p
}

// Send drops the frame when the publisher falls behind.
func (p *PublisherEntry) Send(frame *models.Frame) {
	select {
	case p.ch <- frame:
	default:
		slog.Debug("frame dropped", "publisher", p.ID(), "kind", frame.Kind)
	}
}

// Clear tells the publisher that nothing is playing. Unlike Send it never
// drops the frame.
func (p *PublisherEntry) Clear() {
	p.sent = nil
	p.ch <- &models.Frame{Kind: models.FrameClear}
}

func (p *PublisherEntry) Exit() {
	p.ch <- &models.Frame{Kind: models.FrameExit}
	close(p.ch)
	<-p.done
	if err := p.Publisher.Exit(); err != nil {
		slog.Warn("failed to close publisher", "error", err, "publisher", p.ID())
	}
}

// Controller renders the active player's lyrics to the publishers. It is a
// dispatcher listener: the dispatcher decides which player it follows.
type Controller struct {
	publishers   []*PublisherEntry
	showTitle    bool
	filter       *utils.Matcher
	tickInterval time.Duration
	active       ActiveSource
	now          func() time.Time

	mu            sync.Mutex
	provider      *models.ProviderInfo
	song          *models.Song
	index         *models.Index[*models.LyricLine]
	text          string
	playing       bool
	position      int64
	anchor        time.Time
	cancelTicking context.CancelFunc
}

// ActiveSource reports the active provider and whether it is playing.
type ActiveSource interface {
	Active() (*models.ProviderInfo, bool)
}

type ControllerOptions struct {
	publishers   []*PublisherEntry
	showTitle    bool
	filters      []string
	tickInterval time.Duration
	active       ActiveSource
}

func NewController(opt *ControllerOptions) *Controller {
	var filter *utils.Matcher
	if len(opt.filters) > 0 {
		filter = utils.NewStringMatcher(opt.filters)
	}
	tick := opt.tickInterval
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	return &Controller{
		publishers:   opt.publishers,
		showTitle:    opt.showTitle,
		filter:       filter,
		tickInterval: tick,
		active:       opt.active,
		now:          time.Now,
	}
}

func (c *Controller) OnActiveProviderChanged(info *models.ProviderInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if info == nil {
		slog.Info("no active player")
	} else {
		slog.Info("following player", "provider", info)
	}
	c.provider = info
	c.resetAll()
	// A switch can be triggered by any event of a player that already plays,
	// and the replay that follows carries no playback state.
	if info != nil && c.active != nil {
		if cur, playing := c.active.Active(); playing && cur.Same(info) {
			c.playing = true
			c.anchor = c.now()
			c.startTicking()
		}
	}
}

func (c *Controller) OnSongChanged(song *models.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = ""
	c.setSong(song)
	c.setPosition(0)
	if song == nil {
		c.clearAll()
		return
	}
	slog.Info("song changed", "track", song.Title(), "lines", c.index.Len())
	if c.playing {
		c.showCurrent()
	} else if c.showTitle {
		frame := models.NewTextFrame(song.Title())
		for _, p := range c.publishers {
			p.Send(frame)
		}
	}
}

func (c *Controller) OnPlaybackStateChanged(playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if playing == c.playing {
		return
	}
	c.position = c.currentPosition()
	c.anchor = c.now()
	c.playing = playing
	if playing {
		slog.Info("playback started")
		c.showCurrent()
		c.startTicking()
	} else {
		slog.Info("playback stopped")
		c.stopTicking()
		c.clearAll()
	}
}

func (c *Controller) OnPositionChanged(position int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPosition(position)
	if c.playing {
		c.render()
	}
}

func (c *Controller) OnSeekTo(position int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slog.Debug("seek", "position", position)
	c.setPosition(position)
	if c.playing {
		c.render()
	}
}

func (c *Controller) OnPostText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setSong(nil)
	c.text = text
	frame := models.NewTextFrame(text)
	for _, p := range c.publishers {
		p.sent = nil
		p.Send(frame)
	}
}

func (c *Controller) setSong(song *models.Song) {
	c.song = song
	var lines []*models.LyricLine
	if song.HasLyrics() {
		lines = c.filterLines(song.Lyrics)
	}
	c.index = models.NewIndex(lines)
	for _, p := range c.publishers {
		p.navigator = models.NewNavigator(c.index)
		p.sent = nil
	}
}

func (c *Controller) filterLines(lines []*models.LyricLine) []*models.LyricLine {
	if c.filter == nil {
		return lines
	}
	filtered := make([]*models.LyricLine, 0, len(lines))
	for _, line := range lines {
		if !c.filter.ContainsString(line.Text) {
			filtered = append(filtered, line)
		}
	}
	return filtered
}

func (c *Controller) setPosition(position int64) {
	c.position = position
	c.anchor = c.now()
}

func (c *Controller) currentPosition() int64 {
	if !c.playing {
		return c.position
	}
	return c.position + c.now().Sub(c.anchor).Milliseconds()
}

// render sends every publisher the lines active at the current position,
// unless it already shows them.
func (c *Controller) render() {
	if c.index == nil || c.index.Len() == 0 {
		return
	}
	position := c.currentPosition()
	for _, p := range c.publishers {
		lines := p.navigator.LookupOrPrevious(position + p.Offset)
		if slices.Equal(lines, p.sent) {
			continue
		}
		p.sent = lines
		p.Send(models.NewLineFrame(lines))
	}
}

// showCurrent sends the full current state, whatever was sent before.
func (c *Controller) showCurrent() {
	if c.text != "" {
		frame := models.NewTextFrame(c.text)
		for _, p := range c.publishers {
			p.Send(frame)
		}
		return
	}
	if c.song == nil {
		return
	}
	position := c.currentPosition()
	for _, p := range c.publishers {
		var lines []*models.LyricLine
		if p.navigator != nil {
			lines = p.navigator.LookupOrPrevious(position + p.Offset)
		}
		p.sent = lines
		switch {
		case len(lines) > 0:
			p.Send(models.NewLineFrame(lines))
		case c.showTitle:
			p.Send(models.NewTextFrame(c.song.Title()))
		default:
			p.Send(&models.Frame{Kind: models.FrameClear})
		}
	}
}

func (c *Controller) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		c.render()
	}
}

func (c *Controller) startTicking() {
	c.stopTicking()
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelTicking = cancel
	go func() {
		ticker := time.NewTicker(c.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.tick()
			}
		}
	}()
}

func (c *Controller) stopTicking() {
	if c.cancelTicking != nil {
		c.cancelTicking()
		c.cancelTicking = nil
	}
}

func (c *Controller) clearAll() {
	for _, p := range c.publishers {
		p.Clear()
	}
}

func (c *Controller) resetAll() {
	c.stopTicking()
	c.playing = false
	c.text = ""
	c.setSong(nil)
	c.setPosition(0)
	c.clearAll()
}

func (c *Controller) Exit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTicking()
	for _, p := range c.publishers {
		p.Exit()
	}
}
