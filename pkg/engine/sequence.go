package engine

// sequence assigns sequence numbers to the events of one response. It is
// owned by a single projector and is not safe for concurrent use.
type sequence struct {
	n int
}

// Current returns the number the next event will receive.
func (s *sequence) Current() int {
	return s.n
}

// Next returns the current number and advances the counter.
func (s *sequence) Next() int {
	n := s.n
	s.n++
	return n
}
