package utils

// Matcher finds the first occurrence of any of a fixed set of byte patterns.
// It is an Aho-Corasick automaton compiled into a dense transition table, so
// scanning costs one table lookup per input byte.
type Matcher struct {
	next [][256]int32
	// out is the length of the longest pattern ending at a state, or 0.
	out []int
}

func NewMatcher(dictionary [][]byte) *Matcher {
	m := &Matcher{
		next: make([][256]int32, 1),
		out:  make([]int, 1),
	}
	for _, pattern := range dictionary {
		s := int32(0)
		for _, b := range pattern {
			if m.next[s][b] == 0 {
				m.next = append(m.next, [256]int32{})
				m.out = append(m.out, 0)
				m.next[s][b] = int32(len(m.next) - 1)
			}
			s = m.next[s][b]
		}
		m.out[s] = len(pattern)
	}

	// Breadth first, so the fallback of a state is complete before the
	// state's own missing transitions are copied from it.
	fail := make([]int32, len(m.next))
	queue := make([]int32, 0, len(m.next))
	for b := range 256 {
		if t := m.next[0][b]; t != 0 {
			queue = append(queue, t)
		}
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		f := fail[s]
		if m.out[s] == 0 {
			m.out[s] = m.out[f]
		}
		for b := range 256 {
			t := m.next[s][b]
			if t == 0 {
				m.next[s][b] = m.next[f][b]
				continue
			}
			fail[t] = m.next[f][b]
			queue = append(queue, t)
		}
	}
	return m
}

// NewStringMatcher ignores empty patterns.
func NewStringMatcher(dictionary []string) *Matcher {
	d := make([][]byte, 0, len(dictionary))
	for _, s := range dictionary {
		if s != "" {
			d = append(d, []byte(s))
		}
	}
	return NewMatcher(d)
}

// Index returns where the earliest ending match starts, or -1.
func (m *Matcher) Index(in []byte) int {
	return index(m, in)
}

func (m *Matcher) IndexString(s string) int {
	return index(m, s)
}

func (m *Matcher) Contains(in []byte) bool {
	return index(m, in) >= 0
}

func (m *Matcher) ContainsString(s string) bool {
	return index(m, s) >= 0
}

func index[T string | []byte](m *Matcher, in T) int {
	s := int32(0)
	for i := 0; i < len(in); i++ {
		s = m.next[s][in[i]]
		if n := m.out[s]; n > 0 {
			return i - n + 1
		}
	}
	return -1
}
