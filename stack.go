package xmem

// Location is a resolved route together with the parameters it was
// navigated with and the view its resolver produced.
type Location struct {
	Route  string
	Params Params
	View   any
}

// Params are route parameters such as a note or ledger id.
type Params map[string]string

// Stack holds navigation history for back navigation.
type Stack struct {
	entries []Location
}

// NewStack creates an empty history stack.
func NewStack() *Stack {
	return &Stack{entries: make([]Location, 0)}
}

// Push adds a location. Called when navigating forward.
func (s *Stack) Push(loc Location) {
	s.entries = append(s.entries, loc)
}

// Pop removes and returns the most recent location, or nil if empty.
func (s *Stack) Pop() *Location {
	if len(s.entries) == 0 {
		return nil
	}
	loc := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return &loc
}

// Peek returns the most recent location without removing it, or nil.
func (s *Stack) Peek() *Location {
	if len(s.entries) == 0 {
		return nil
	}
	loc := s.entries[len(s.entries)-1]
	return &loc
}

// IsEmpty reports whether the stack has no entries.
func (s *Stack) IsEmpty() bool {
	return len(s.entries) == 0
}

// Len returns the number of entries.
func (s *Stack) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the history, oldest first.
func (s *Stack) Entries() []Location {
	out := make([]Location, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear removes all entries.
func (s *Stack) Clear() {
	s.entries = s.entries[:0]
}
