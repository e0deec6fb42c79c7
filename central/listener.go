package central

import "lyricon/models"

// PlayerListener receives the raw events of every registered player.
type PlayerListener interface {
	OnSongChanged(player *Player, song *models.Song)
	OnPlaybackStateChanged(player *Player, playing bool)
	OnPositionChanged(player *Player, position int64)
	OnSeekTo(player *Player, position int64)
	OnPostText(player *Player, text string)
}

// ActivePlayerListener receives the events of the active player only.
// OnActiveProviderChanged gets nil once the active provider went away.
type ActivePlayerListener interface {
	OnActiveProviderChanged(info *models.ProviderInfo)
	OnSongChanged(song *models.Song)
	OnPlaybackStateChanged(playing bool)
	OnPositionChanged(position int64)
	OnSeekTo(position int64)
	OnPostText(text string)
}
