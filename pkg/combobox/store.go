package combobox

// Store holds the logical item collection. It is either backed by a slice the
// host assigns and mutates through the engine, or by a Pager that loads pages
// on demand. Every mutation bumps the revision so derived views recompute.
type Store struct {
	items    []any
	pager    *Pager
	assigned bool
	revision uint64
}

// NewStore returns a slice-backed store. A nil slice leaves the store
// unassigned, which lets a value be set before items arrive.
func NewStore(items []any) *Store {
	s := &Store{}
	if items != nil {
		s.Set(items)
	}
	return s
}

// NewPagedStore returns a store whose items come from p.
func NewPagedStore(p *Pager) *Store {
	return &Store{pager: p, assigned: true}
}

// Paged reports whether items are loaded lazily.
func (s *Store) Paged() bool { return s.pager != nil }

// Pager returns the backing pager, or nil for slice stores.
func (s *Store) Pager() *Pager { return s.pager }

// Assigned reports whether a collection has ever been set.
func (s *Store) Assigned() bool { return s.assigned }

// Complete reports whether every item can be searched: a slice store once a
// collection is assigned, a paged store once all unfiltered pages are cached.
func (s *Store) Complete() bool {
	if s.pager != nil {
		return s.pager.complete()
	}
	return s.assigned
}

// Revision increments on every mutation.
func (s *Store) Revision() uint64 { return s.revision }

// Len returns the number of items, or the total-count hint for paged stores.
func (s *Store) Len() int {
	if s.pager != nil {
		return s.pager.Len()
	}
	return len(s.items)
}

// At returns the item at i. The boolean is false when i is out of range or the
// page holding i has not been loaded yet.
func (s *Store) At(i int) (any, bool) {
	if s.pager != nil {
		return s.pager.At(i)
	}
	if i < 0 || i >= len(s.items) {
		return nil, false
	}
	return s.items[i], true
}

// Each calls fn for every loaded item in order until fn returns false.
func (s *Store) Each(fn func(i int, item any) bool) {
	if s.pager != nil {
		s.pager.Each(fn)
		return
	}
	for i, item := range s.items {
		if !fn(i, item) {
			return
		}
	}
}

// Set replaces the collection. A nil slice unassigns it.
func (s *Store) Set(items []any) {
	s.items = append([]any(nil), items...)
	s.assigned = items != nil
	s.touch()
}

// Append adds items at the end.
func (s *Store) Append(items ...any) {
	s.items = append(s.items, items...)
	s.assigned = true
	s.touch()
}

// Splice removes deleteCount items at start and inserts items in their place.
// Out-of-range arguments are clamped.
func (s *Store) Splice(start, deleteCount int, items ...any) {
	start = clamp(start, 0, len(s.items))
	end := clamp(start+max(deleteCount, 0), start, len(s.items))
	next := make([]any, 0, len(s.items)-(end-start)+len(items))
	next = append(next, s.items[:start]...)
	next = append(next, items...)
	next = append(next, s.items[end:]...)
	s.items = next
	s.assigned = true
	s.touch()
}

// Clear empties the collection but keeps it assigned. Paged stores drop their
// cache and count hint.
func (s *Store) Clear() {
	if s.pager != nil {
		s.pager.reset()
		s.touch()
		return
	}
	s.items = []any{}
	s.assigned = true
	s.touch()
}

// setPagedFilter forwards a filter change to the pager.
func (s *Store) setPagedFilter(text string) bool {
	if s.pager == nil || !s.pager.setFilter(text) {
		return false
	}
	s.touch()
	return true
}

// putPage caches a loaded page and reports whether it was current.
func (s *Store) putPage(page Page) bool {
	if s.pager == nil || !s.pager.put(page) {
		return false
	}
	s.touch()
	return true
}

// failPage records a page that could not be used and reports whether it was
// current and new.
func (s *Store) failPage(page Page, err error) bool {
	if s.pager == nil || !s.pager.fail(page, err) {
		return false
	}
	s.touch()
	return true
}

func (s *Store) touch() { s.revision++ }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
