package models

import "strings"

// Fallback window for a word list with no usable timing at all.
const fallbackWordEnd = 100

// NormalizeWords repairs a word list for display. Blank words are dropped.
// Words with negative begin or end <= begin cannot be timed, so their text is
// folded into a filler word spanning the gap before the next timed word, or
// appended to the previous timed word, or prepended to the next one. The
// input is left untouched.
func NormalizeWords(words []*LyricWord) []*LyricWord {
	result := make([]*LyricWord, 0, len(words))
	var pending strings.Builder
	var lastEnd int64

	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		if w.Begin < 0 || w.End <= w.Begin {
			pending.WriteString(w.Text)
			continue
		}

		word := w.Clone()
		if word.Duration <= 0 {
			word.Duration = word.End - word.Begin
		}
		if pending.Len() > 0 {
			text := pending.String()
			pending.Reset()
			switch {
			case len(result) == 0:
				word.Text = text + word.Text
			case word.Begin-lastEnd > 0:
				result = append(result, &LyricWord{
					Begin:    lastEnd,
					End:      word.Begin,
					Duration: word.Begin - lastEnd,
					Text:     text,
				})
			default:
				result[len(result)-1].Text += text
			}
		}
		result = append(result, word)
		lastEnd = word.End
	}

	if pending.Len() > 0 {
		if len(result) > 0 {
			result[len(result)-1].Text += pending.String()
		} else {
			result = append(result, &LyricWord{
				Begin:    0,
				End:      fallbackWordEnd,
				Duration: fallbackWordEnd,
				Text:     pending.String(),
			})
		}
	}

	SortByBegin(result)
	return result
}
