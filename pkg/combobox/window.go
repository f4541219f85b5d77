package combobox

// Window tracks the contiguous range of view rows materialized in the
// viewport. Capacity comes from the host after layout; Last is derived.
type Window struct {
	first    int
	capacity int
	length   int
}

// NewWindow returns a window showing capacity rows.
func NewWindow(capacity int) *Window {
	return &Window{capacity: max(capacity, 1)}
}

// First returns the index of the first visible row.
func (w *Window) First() int { return w.first }

// Last returns First + Capacity - 1.
func (w *Window) Last() int { return w.first + w.capacity - 1 }

// Capacity returns the number of rows that fit in the viewport.
func (w *Window) Capacity() int { return w.capacity }

// Len returns the view length the window was last sized against.
func (w *Window) Len() int { return w.length }

// SetCapacity updates the row capacity and re-clamps First. Setting the same
// capacity again changes nothing. It reports whether First or Capacity moved.
func (w *Window) SetCapacity(rows int) bool {
	rows = max(rows, 1)
	if rows == w.capacity {
		return false
	}
	w.capacity = rows
	w.ScrollToIndex(w.first)
	return true
}

// SetLength records the view length and re-clamps First.
func (w *Window) SetLength(n int) {
	w.length = max(n, 0)
	w.ScrollToIndex(w.first)
}

// ScrollToIndex makes i the first visible row, clamped to [0, len-capacity].
func (w *Window) ScrollToIndex(i int) {
	maxFirst := w.length - w.capacity
	if maxFirst <= 0 {
		w.first = 0
		return
	}
	w.first = clamp(i, 0, maxFirst)
}

// EnsureVisible scrolls the minimum distance that brings row i into view.
func (w *Window) EnsureVisible(i int) {
	switch {
	case i < w.first:
		w.ScrollToIndex(i)
	case i > w.Last():
		w.ScrollToIndex(i - w.capacity + 1)
	}
}

// Contains reports whether row i is inside [First, Last].
func (w *Window) Contains(i int) bool {
	return i >= w.first && i <= w.Last()
}

// Visible returns the half-open range of rows the host should render.
func (w *Window) Visible() (start, end int) {
	start = w.first
	end = min(w.first+w.capacity, w.length)
	if end < start {
		end = start
	}
	return start, end
}

// Reset scrolls back to the top.
func (w *Window) Reset() { w.first = 0 }
