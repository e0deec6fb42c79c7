package models

import (
	"bytes"
	"errors"
	"testing"
)

func TestLineNormalizeRebuildsText(t *testing.T) {
	l := &LyricLine{
		Begin: 0, End: 300, Text: "stale",
		Words: []*LyricWord{
			word(0, 100, 100, "Hel"),
			word(-1, -1, 0, "lo"),
			word(150, 300, 150, " there"),
		},
		TranslationText:  "kept",
		TranslationWords: []*LyricWord{},
	}
	got := l.Normalize()
	if got.Text != "Hello there" {
		t.Fatalf("text %q", got.Text)
	}
	if got.TranslationText != "kept" {
		t.Fatalf("translation %q", got.TranslationText)
	}
	if l.Text != "stale" || len(l.Words) != 3 {
		t.Fatal("source line was modified")
	}
}

func TestSongNormalize(t *testing.T) {
	s := &Song{
		Name: "song",
		Lyrics: []*LyricLine{
			{Begin: 300, End: 400, Text: "c"},
			{Begin: -1, End: 100, Text: "negative"},
			{Begin: 0, End: 100, Duration: 100, Text: "a"},
			{Begin: 200, End: 200, Text: "empty"},
			{Begin: 100, End: 200, Text: "b"},
		},
	}
	got := s.Normalize()
	if len(got.Lyrics) != 3 {
		t.Fatalf("got %d lines", len(got.Lyrics))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got.Lyrics[i].Text != want {
			t.Fatalf("line %d: %q", i, got.Lyrics[i].Text)
		}
	}
	if got.Lyrics[2].Duration != 100 {
		t.Fatalf("duration %d", got.Lyrics[2].Duration)
	}
	if len(s.Lyrics) != 5 || s.Lyrics[0].Duration != 0 {
		t.Fatal("source song was modified")
	}
}

func TestSongClone(t *testing.T) {
	s := &Song{
		Name:     "song",
		Metadata: Metadata{"k": "v"},
		Lyrics:   []*LyricLine{{Begin: 0, End: 10, Words: []*LyricWord{word(0, 10, 10, "w")}}},
	}
	c := s.Clone()
	c.Metadata["k"] = "changed"
	c.Lyrics[0].Words[0].Text = "changed"
	if s.Metadata["k"] != "v" || s.Lyrics[0].Words[0].Text != "w" {
		t.Fatal("clone shares state with the original")
	}
}

func TestSongPayload(t *testing.T) {
	s := &Song{ID: "1", Name: "春日影", Artist: "CRYCHIC", Duration: 258_000}
	for i := range 200 {
		s.Lyrics = append(s.Lyrics, &LyricLine{
			Begin: int64(i) * 1000, End: int64(i)*1000 + 900, Text: "同じ歌詞が何度も繰り返される",
		})
	}
	data, err := EncodeSong(s)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeSong(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != s.Name || len(got.Lyrics) != 200 || got.Lyrics[199].Begin != 199_000 {
		t.Fatalf("got %+v", got)
	}
	// normalization fills in the durations left empty above
	if got.Lyrics[0].Duration != 900 {
		t.Fatalf("duration %d", got.Lyrics[0].Duration)
	}
}

func TestSongPayloadRejected(t *testing.T) {
	data, err := EncodeSong(&Song{Name: "x"})
	if err != nil {
		t.Fatal(err)
	}
	bad := bytes.Clone(data)
	bad[0] = 'x'
	if _, err := DecodeSong(bad); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("got %v", err)
	}
	if _, err := DecodeSong(data[:5]); !errors.Is(err, ErrPayloadTruncated) {
		t.Fatalf("got %v", err)
	}
}

func TestLineFrame(t *testing.T) {
	f := NewLineFrame([]*LyricLine{
		{Begin: 0, End: 100, Text: "a", TranslationText: "A"},
		{Begin: 50, End: 200, Text: "b"},
	})
	if f.Kind != FrameLine || f.Begin != 0 || f.End != 200 {
		t.Fatalf("got %+v", f)
	}
	if f.String() != "a\nb\nA" {
		t.Fatalf("got %q", f.String())
	}
	if NewLineFrame(nil).Kind != FrameClear || NewTextFrame("").Kind != FrameClear {
		t.Fatal("empty frames must clear")
	}
}
