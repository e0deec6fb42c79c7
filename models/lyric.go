package models

import (
	"maps"
	"slices"
	"strings"
)

// Timing is a closed [begin, end] window in milliseconds.
type Timing interface {
	GetBegin() int64
	GetEnd() int64
}

type Metadata map[string]string

func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

type LyricWord struct {
	Begin    int64    `json:"begin"`
	End      int64    `json:"end"`
	Duration int64    `json:"duration"`
	Text     string   `json:"text,omitempty"`
	Metadata Metadata `json:"metadata,omitempty"`
}

func (w *LyricWord) GetBegin() int64 { return w.Begin }
func (w *LyricWord) GetEnd() int64   { return w.End }

func (w *LyricWord) Clone() *LyricWord {
	c := *w
	c.Metadata = w.Metadata.Clone()
	return &c
}

// LyricLine is one displayed line. The secondary and translation channels share
// the line's timing and are empty when the source has none.
type LyricLine struct {
	Begin            int64        `json:"begin"`
	End              int64        `json:"end"`
	Duration         int64        `json:"duration"`
	AlignedRight     bool         `json:"isAlignedRight,omitempty"`
	Metadata         Metadata     `json:"metadata,omitempty"`
	Text             string       `json:"text,omitempty"`
	Words            []*LyricWord `json:"words,omitempty"`
	SecondaryText    string       `json:"secondaryText,omitempty"`
	SecondaryWords   []*LyricWord `json:"secondaryWords,omitempty"`
	TranslationText  string       `json:"translationText,omitempty"`
	TranslationWords []*LyricWord `json:"translationWords,omitempty"`
}

func (l *LyricLine) GetBegin() int64 { return l.Begin }
func (l *LyricLine) GetEnd() int64   { return l.End }

func (l *LyricLine) Clone() *LyricLine {
	c := *l
	c.Metadata = l.Metadata.Clone()
	c.Words = cloneWords(l.Words)
	c.SecondaryWords = cloneWords(l.SecondaryWords)
	c.TranslationWords = cloneWords(l.TranslationWords)
	return &c
}

// Normalize returns a copy whose word channels went through NormalizeWords.
// A channel's text is rebuilt from its words whenever words are present.
func (l *LyricLine) Normalize() *LyricLine {
	c := l.Clone()
	c.Words, c.Text = normalizeChannel(c.Words, c.Text)
	c.SecondaryWords, c.SecondaryText = normalizeChannel(c.SecondaryWords, c.SecondaryText)
	c.TranslationWords, c.TranslationText = normalizeChannel(c.TranslationWords, c.TranslationText)
	return c
}

func normalizeChannel(words []*LyricWord, text string) ([]*LyricWord, string) {
	if words == nil {
		return nil, text
	}
	words = NormalizeWords(words)
	if len(words) == 0 {
		return words, text
	}
	return words, JoinWords(words)
}

func JoinWords(words []*LyricWord) string {
	builder := &strings.Builder{}
	for _, w := range words {
		builder.WriteString(w.Text)
	}
	return builder.String()
}

func cloneWords(words []*LyricWord) []*LyricWord {
	if words == nil {
		return nil
	}
	out := make([]*LyricWord, len(words))
	for i, w := range words {
		out[i] = w.Clone()
	}
	return out
}

type Song struct {
	ID       string       `json:"id,omitempty"`
	Name     string       `json:"name,omitempty"`
	Artist   string       `json:"artist,omitempty"`
	Duration int64        `json:"duration,omitempty"` // milli
	Metadata Metadata     `json:"metadata,omitempty"`
	Lyrics   []*LyricLine `json:"lyrics,omitempty"`
}

func (s *Song) Clone() *Song {
	c := *s
	c.Metadata = s.Metadata.Clone()
	if s.Lyrics != nil {
		c.Lyrics = make([]*LyricLine, len(s.Lyrics))
		for i, line := range s.Lyrics {
			c.Lyrics[i] = line.Clone()
		}
	}
	return &c
}

// Normalize returns a copy with lines of unusable timing dropped, durations
// filled in and lines sorted by begin.
func (s *Song) Normalize() *Song {
	c := s.Clone()
	if c.Lyrics == nil {
		return c
	}
	n := 0
	for _, line := range c.Lyrics {
		if line.Duration <= 0 {
			line.Duration = line.End - line.Begin
		}
		if line.Begin < 0 || line.Begin >= line.End || line.Duration <= 0 {
			continue
		}
		c.Lyrics[n] = line.Normalize()
		n++
	}
	clear(c.Lyrics[n:])
	c.Lyrics = c.Lyrics[:n]
	SortByBegin(c.Lyrics)
	return c
}

func (s *Song) HasLyrics() bool {
	return s != nil && len(s.Lyrics) > 0
}

func (s *Song) Title() string {
	if s == nil || s.Name == "" {
		return "<nil>"
	}
	if s.Artist == "" {
		return s.Name
	}
	return s.Name + " - " + s.Artist
}

// SortByBegin sorts in place, keeping the relative order of equal begins.
func SortByBegin[T Timing](items []T) {
	slices.SortStableFunc(items, func(a, b T) int {
		switch {
		case a.GetBegin() < b.GetBegin():
			return -1
		case a.GetBegin() > b.GetBegin():
			return 1
		}
		return 0
	})
}
