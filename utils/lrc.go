package utils

import (
	"bytes"
	"errors"
	"slices"
	"strconv"
	"strings"

	"lyricon/models"
)

// defaultLastLine is how long the last line lasts when the track duration
// does not tell.
const defaultLastLine = 5000

var ErrNotSynced = errors.New("lrc not synced")

type lrcEntry struct {
	position int64
	text     string
}

// ParseLrc turns LRC text into lyric lines. Lines sharing a timestamp are
// merged: the second becomes the translation and the third the secondary
// text. A line lasts until the next timestamp; empty lines only end the one
// before them. duration is the track length in milliseconds, or 0.
func ParseLrc(lrc string, duration int64) ([]*models.LyricLine, error) {
	data := []byte(lrc)
	entries := []lrcEntry{}
	var offset int64
	for len(data) > 0 {
		var line []byte
		lineLen := bytes.IndexByte(data, '\n')
		if lineLen == 0 {
			data = data[1:]
			continue
		} else if lineLen == -1 {
			line = data
			data = nil
		} else {
			line = data[:lineLen]
			data = data[lineLen+1:]
		}
		line = bytes.TrimRight(line, "\r")

		if o, ok := parseOffset(line); ok {
			offset = o
			continue
		}

		positions := []int64{}
		for len(line) > 0 && line[0] == '[' {
			j := bytes.IndexByte(line, ']')
			if j == -1 {
				break
			}
			p, ok := parseLRCPosition(line[1:j])
			if !ok {
				break
			}
			positions = append(positions, p)
			line = line[j+1:]
		}
		text := string(bytes.TrimSpace(line))
		for _, p := range positions {
			entries = append(entries, lrcEntry{position: p, text: text})
		}
	}
	if len(entries) == 0 {
		return nil, ErrNotSynced
	}
	slices.SortStableFunc(entries, func(a, b lrcEntry) int {
		return int(a.position - b.position)
	})

	lines := []*models.LyricLine{}
	for i := 0; i < len(entries); {
		j := i + 1
		for j < len(entries) && entries[j].position == entries[i].position {
			j++
		}
		line := groupLine(entries[i:j])
		begin := max(entries[i].position-offset, 0)
		var end int64
		if j < len(entries) {
			end = entries[j].position - offset - 1
		} else if duration > begin {
			end = duration
		} else {
			end = begin + defaultLastLine
		}
		i = j
		if line == nil || end <= begin {
			continue
		}
		line.Begin = begin
		line.End = end
		line.Duration = end - begin
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, ErrNotSynced
	}
	return lines, nil
}

func groupLine(group []lrcEntry) *models.LyricLine {
	texts := make([]string, 0, len(group))
	for _, e := range group {
		if e.text != "" {
			texts = append(texts, e.text)
		}
	}
	if len(texts) == 0 {
		return nil
	}
	line := &models.LyricLine{Text: texts[0]}
	if len(texts) > 1 {
		line.TranslationText = texts[1]
	}
	if len(texts) > 2 {
		line.SecondaryText = strings.Join(texts[2:], " ")
	}
	return line
}

func parseOffset(line []byte) (int64, bool) {
	rest, ok := bytes.CutPrefix(bytes.TrimSpace(line), []byte("[offset:"))
	if !ok {
		return 0, false
	}
	rest, ok = bytes.CutSuffix(rest, []byte("]"))
	if !ok {
		return 0, false
	}
	o, err := strconv.ParseInt(strings.TrimSpace(string(rest)), 10, 64)
	if err != nil {
		return 0, false
	}
	return o, true
}

func parseLRCPosition(s []byte) (int64, bool) {
	sLen := len(s)
	if sLen < 5 || sLen > 12 {
		return 0, false
	}

	var n, sec int64
	sepIdx := 0
	sepCnt := 0
	for i, ch := range s {
		if ch == ':' || ch == '.' {
			sec = sec*60 + n
			n = 0
			sepIdx = i
			sepCnt++
			continue
		}
		ch -= '0'
		if ch > 9 {
			return 0, false
		}
		n = n*10 + int64(ch)
	}
	if sepCnt == 0 {
		return 0, false
	}

	if sLen-sepIdx == 3 && sepCnt == 1 && s[sepIdx] == ':' { // [mm:ss]
		return (sec*60 + n) * 1000, true
	}

	position := sec * 1000
	switch sLen - sepIdx {
	case 2:
		position += n * 100
	case 3:
		position += n * 10
	case 4:
		position += n
	}
	return position, true
}
