package bridge

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lyricon/central"
	"lyricon/models"
)

const (
	OpPlayback = "playback"
	OpSeek     = "seek"
	OpPosition = "position"
	OpText     = "text"
	OpSong     = "song"
)

const (
	EventHello          = "hello"
	EventActiveProvider = "active_provider"
	EventSong           = "song"
	EventPlayback       = "playback"
	EventPosition       = "position"
	EventSeek           = "seek"
	EventText           = "text"
)

// command is a text message sent by a provider.
type command struct {
	Op       string       `json:"op"`
	Playing  bool         `json:"playing,omitempty"`
	Position int64        `json:"position,omitempty"`
	Text     string       `json:"text,omitempty"`
	Song     *models.Song `json:"song,omitempty"`
}

func (c *command) apply(p *central.Player) error {
	switch c.Op {
	case OpPlayback:
		p.SetPlaybackState(c.Playing)
	case OpSeek:
		p.SeekTo(c.Position)
	case OpPosition:
		p.UpdatePosition(c.Position)
	case OpText:
		p.SendText(c.Text)
	case OpSong:
		if c.Song == nil {
			p.SetSong(nil)
			return nil
		}
		p.SetSong(c.Song.Normalize())
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, c.Op)
	}
	return nil
}

// Event is a message sent to a subscriber.
type Event struct {
	Event    string               `json:"event"`
	Session  string               `json:"session,omitempty"`
	Provider *models.ProviderInfo `json:"provider,omitempty"`
	Song     *models.Song         `json:"song,omitempty"`
	Playing  *bool                `json:"playing,omitempty"`
	Position *int64               `json:"position,omitempty"`
	Text     *string              `json:"text,omitempty"`
}

// remoteListener queues events for one subscriber connection. Queuing never
// blocks the dispatcher: when the connection falls behind events are dropped.
type remoteListener struct {
	session string
	send    chan *Event
	done    chan struct{}
	once    sync.Once
}

func newRemoteListener(session string) *remoteListener {
	l := &remoteListener{
		session: session,
		send:    make(chan *Event, sendBuffer),
		done:    make(chan struct{}),
	}
	l.enqueue(&Event{Event: EventHello, Session: session})
	return l
}

func (l *remoteListener) close() {
	l.once.Do(func() { close(l.done) })
}

func (l *remoteListener) enqueue(ev *Event) {
	select {
	case <-l.done:
	case l.send <- ev:
	default:
		slog.Warn("subscriber too slow, event dropped", "session", l.session, "event", ev.Event)
	}
}

func (l *remoteListener) writeLoop(conn *websocket.Conn) {
	for {
		select {
		case <-l.done:
			return
		case ev := <-l.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				slog.Warn("failed to write event", "error", err, "session", l.session)
				conn.Close()
				return
			}
		}
	}
}

func (l *remoteListener) OnActiveProviderChanged(info *models.ProviderInfo) {
	l.enqueue(&Event{Event: EventActiveProvider, Provider: info})
}

func (l *remoteListener) OnSongChanged(song *models.Song) {
	l.enqueue(&Event{Event: EventSong, Song: song})
}

func (l *remoteListener) OnPlaybackStateChanged(playing bool) {
	l.enqueue(&Event{Event: EventPlayback, Playing: &playing})
}

func (l *remoteListener) OnPositionChanged(position int64) {
	l.enqueue(&Event{Event: EventPosition, Position: &position})
}

func (l *remoteListener) OnSeekTo(position int64) {
	l.enqueue(&Event{Event: EventSeek, Position: &position})
}

func (l *remoteListener) OnPostText(text string) {
	l.enqueue(&Event{Event: EventText, Text: &text})
}
