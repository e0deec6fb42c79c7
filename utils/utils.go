package utils

import (
	"slices"
	"strings"

	"lyricon/models"
)

// SameTrack reports whether two metadata describe the same track.
func SameTrack(a *models.MPRISMetadata, b *models.MPRISMetadata) bool {
	if a.TrackID != "" || b.TrackID != "" {
		return a.TrackID == b.TrackID && a.Title == b.Title
	}
	return a.Title == b.Title && slices.Equal(a.Artists, b.Artists) && a.URL == b.URL
}

func FormatTrack(meta *models.MPRISMetadata) string {
	if meta.Title == "" {
		return "<nil>"
	}
	artists := slices.Clone(meta.Artists)
	slices.Sort(artists)
	builder := &strings.Builder{}
	builder.WriteString(meta.Title)
	if len(artists) > 0 {
		builder.WriteString(" -")
	}
	for _, artist := range artists {
		builder.WriteByte(' ')
		builder.WriteString(artist)
	}
	return builder.String()
}

// SongFromMetadata builds a song out of MPRIS metadata. Synced lyrics carried
// in xesam:asText become the song's lines.
func SongFromMetadata(meta *models.MPRISMetadata) *models.Song {
	if meta.Title == "" {
		return nil
	}
	song := &models.Song{
		ID:       meta.TrackID,
		Name:     meta.Title,
		Artist:   strings.Join(meta.Artists, ", "),
		Duration: meta.Duration.Milliseconds(),
	}
	if meta.Album != "" || meta.URL != "" {
		song.Metadata = models.Metadata{}
		if meta.Album != "" {
			song.Metadata["album"] = meta.Album
		}
		if meta.URL != "" {
			song.Metadata["url"] = meta.URL
		}
	}
	if meta.Text != "" {
		lines, err := ParseLrc(meta.Text, song.Duration)
		if err == nil {
			song.Lyrics = lines
		}
	}
	return song.Normalize()
}
