package models

import (
	"fmt"
	"strings"
)

type FrameKind int

const (
	// FrameLine carries the lyric lines active at the current position.
	FrameLine FrameKind = iota
	// FrameText carries free text posted by the player or the track title.
	FrameText
	// FrameClear tells publishers that nothing is playing.
	FrameClear
	// FrameExit is the last frame a publisher receives.
	FrameExit
)

var frameKindNames = [...]string{"line", "text", "clear", "exit"}

func (k FrameKind) String() string {
	if k < 0 || int(k) >= len(frameKindNames) {
		return fmt.Sprintf("FrameKind(%d)", int(k))
	}
	return frameKindNames[k]
}

func (k FrameKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *FrameKind) UnmarshalText(b []byte) error {
	for i, name := range frameKindNames {
		if name == string(b) {
			*k = FrameKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown frame kind %q", b)
}

// Frame is what publishers render.
type Frame struct {
	Kind        FrameKind `json:"kind"`
	Text        string    `json:"text,omitempty"`
	Secondary   string    `json:"secondary,omitempty"`
	Translation string    `json:"translation,omitempty"`
	Begin       int64     `json:"begin,omitempty"`
	End         int64     `json:"end,omitempty"`
}

// NewLineFrame merges overlapping lines into one frame, one text row per line.
func NewLineFrame(lines []*LyricLine) *Frame {
	if len(lines) == 0 {
		return &Frame{Kind: FrameClear}
	}
	f := &Frame{Kind: FrameLine, Begin: lines[0].Begin, End: lines[0].End}
	var text, secondary, translation []string
	for _, line := range lines {
		f.Begin = min(f.Begin, line.Begin)
		f.End = max(f.End, line.End)
		text = append(text, line.Text)
		if line.SecondaryText != "" {
			secondary = append(secondary, line.SecondaryText)
		}
		if line.TranslationText != "" {
			translation = append(translation, line.TranslationText)
		}
	}
	f.Text = strings.Join(text, "\n")
	f.Secondary = strings.Join(secondary, "\n")
	f.Translation = strings.Join(translation, "\n")
	return f
}

func NewTextFrame(text string) *Frame {
	if text == "" {
		return &Frame{Kind: FrameClear}
	}
	return &Frame{Kind: FrameText, Text: text}
}

// String is the plain-text rendering used by line oriented sinks.
func (f *Frame) String() string {
	switch f.Kind {
	case FrameClear, FrameExit:
		return ""
	}
	rows := []string{f.Text}
	if f.Secondary != "" {
		rows = append(rows, f.Secondary)
	}
	if f.Translation != "" {
		rows = append(rows, f.Translation)
	}
	return strings.Join(rows, "\n")
}
