package fifoset

// FIFOSet is a bounded string set with insertion-order eviction. Not safe
// for concurrent use; callers wrap it in their own synchronization.
type FIFOSet struct {
	capacity int
	order    []string
	members  map[string]struct{}
}

// New creates a FIFOSet holding at most capacity entries
func New(capacity int) *FIFOSet {
	return &FIFOSet{
		capacity: capacity,
		members:  make(map[string]struct{}, capacity),
	}
}

// Add inserts the key, evicting the oldest entry when full. It returns
// false if the key was already present.
func (s *FIFOSet) Add(key string) bool {
	if _, ok := s.members[key]; ok {
		return false
	}
	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.members, oldest)
	}
	s.order = append(s.order, key)
	s.members[key] = struct{}{}
	return true
}

// Contains reports whether the key is present
func (s *FIFOSet) Contains(key string) bool {
	_, ok := s.members[key]
	return ok
}

// Len returns the number of entries currently held
func (s *FIFOSet) Len() int {
	return len(s.order)
}
