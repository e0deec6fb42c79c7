package central

import (
	"sync"

	"lyricon/models"
)

// Player records the last known state of one provider and forwards each
// change to its listener. The listener runs after the state is recorded.
type Player struct {
	info     models.ProviderInfo
	listener PlayerListener

	mu       sync.Mutex
	song     *models.Song
	playing  bool
	position int64
	text     string
}

func NewPlayer(info models.ProviderInfo, listener PlayerListener) *Player {
	return &Player{
		info:     info,
		listener: listener,
	}
}

func (p *Player) Info() *models.ProviderInfo {
	return &p.info
}

func (p *Player) Song() *models.Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.song
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) Position() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *Player) Text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text
}

// SetSong replaces the song and drops any posted text.
func (p *Player) SetSong(song *models.Song) {
	p.mu.Lock()
	p.song = song
	p.text = ""
	p.mu.Unlock()
	p.listener.OnSongChanged(p, song)
}

func (p *Player) SetPlaybackState(playing bool) {
	p.mu.Lock()
	p.playing = playing
	p.mu.Unlock()
	p.listener.OnPlaybackStateChanged(p, playing)
}

func (p *Player) SeekTo(position int64) {
	position = max(position, 0)
	p.mu.Lock()
	p.position = position
	p.mu.Unlock()
	p.listener.OnSeekTo(p, position)
}

// UpdatePosition ignores positions equal to the last one recorded.
func (p *Player) UpdatePosition(position int64) {
	position = max(position, 0)
	p.mu.Lock()
	if position == p.position {
		p.mu.Unlock()
		return
	}
	p.position = position
	p.mu.Unlock()
	p.listener.OnPositionChanged(p, position)
}

// SendText posts free text in place of the song.
func (p *Player) SendText(text string) {
	p.mu.Lock()
	p.song = nil
	p.text = text
	p.mu.Unlock()
	p.listener.OnPostText(p, text)
}

type playerState struct {
	song     *models.Song
	playing  bool
	position int64
	text     string
}

func (p *Player) state() playerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return playerState{
		song:     p.song,
		playing:  p.playing,
		position: p.position,
		text:     p.text,
	}
}
