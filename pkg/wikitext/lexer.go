package wikitext

// scanner is a byte cursor over wikitext source. The parser drives it
// directly; there is no separate token stream because wikitext's template
// grammar is delimiter-based rather than statement-based.

type scanner struct {
	src []byte
	i   int
	n   int
}

func newScanner(src []byte) *scanner {
	return &scanner{src: src, n: len(src)}
}

func (s *scanner) eof() bool {
	return s.i >= s.n
}

func (s *scanner) next() byte {
	if s.i >= s.n {
		return 0
	}
	b := s.src[s.i]
	s.i++
	return b
}

// startsWith reports whether the remaining input begins with prefix, without
// consuming it.
func (s *scanner) startsWith(prefix string) bool {
	if s.i+len(prefix) > s.n {
		return false
	}
	for j := 0; j < len(prefix); j++ {
		if s.src[s.i+j] != prefix[j] {
			return false
		}
	}
	return true
}

// match consumes prefix if the remaining input begins with it.
func (s *scanner) match(prefix string) bool {
	if !s.startsWith(prefix) {
		return false
	}
	s.i += len(prefix)
	return true
}

// scanWhile consumes and returns the longest run of bytes satisfying pred.
func (s *scanner) scanWhile(pred func(byte) bool) string {
	start := s.i
	for s.i < s.n && pred(s.src[s.i]) {
		s.i++
	}
	return string(s.src[start:s.i])
}

func isAlpha(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
