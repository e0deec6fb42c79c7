package utils

import (
	"strings"
	"testing"
)

const (
	title    = "春日影 (MyGo!!!!! ver.)"
	expected = "春日影"
)

var splitters = []string{"(", "（", "[", "［", "【", "〖", "＜", "〈", "《", "-", "―", "—", " feat.", " ft.", " ver."}

func BenchmarkAhoCorasick(b *testing.B) {
	matcher := NewStringMatcher(splitters)
	var out string
	for b.Loop() {
		idx := matcher.IndexString(title)
		if idx == -1 {
			out = title
		} else {
			out = title[:idx]
		}
	}
	out = strings.TrimSpace(out)
	b.Log(out)
	if out != expected {
		b.Fail()
	}
}

func BenchmarkMinIndex(b *testing.B) {
	var out string
	for b.Loop() {
		min := len(title)
		for _, sep := range splitters {
			if i := strings.Index(title, sep); i != -1 && i < min {
				min = i
			}
		}
		out = title[:min]
	}
	out = strings.TrimSpace(out)
	b.Log(out)
	if out != expected {
		b.Fail()
	}
}

func TestMatcherContains(t *testing.T) {
	m := NewStringMatcher([]string{"作词", "作曲", ""})
	if !m.ContainsString("作词 : someone") {
		t.Fatal("missed")
	}
	if m.ContainsString("la la la") {
		t.Fatal("false positive")
	}
	if NewStringMatcher(nil).ContainsString("anything") {
		t.Fatal("empty matcher matched")
	}
}

func TestMatcherIndex(t *testing.T) {
	m := NewStringMatcher([]string{"he", "she", "his", "hers"})
	cases := []struct {
		in   string
		want int
	}{
		{"ushers", 1},
		{"ahishers", 1},
		{"xhe", 1},
		{"hxs", -1},
		{"", -1},
	}
	for _, c := range cases {
		if got := m.IndexString(c.in); got != c.want {
			t.Errorf("IndexString(%q) = %d, want %d", c.in, got, c.want)
		}
		if got := m.Index([]byte(c.in)); got != c.want {
			t.Errorf("Index(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
