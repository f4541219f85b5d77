package combobox

import (
	"strings"

	"golang.org/x/text/cases"
)

// Entry is one row of a filtered view. Index is the item's position in the
// store. Loaded is false for placeholders of paged items not fetched yet.
type Entry struct {
	Item   any
	Index  int
	Label  string
	Loaded bool
}

// View is the ordered filtered subset of a store. Paged stores are filtered by
// their provider, so their view mirrors the store and yields placeholders for
// unloaded rows.
type View struct {
	entries []Entry
	paged   *Store
	acc     Accessor
}

// Len returns the number of rows.
func (v View) Len() int {
	if v.paged != nil {
		return v.paged.Len()
	}
	return len(v.entries)
}

// At returns row i.
func (v View) At(i int) (Entry, bool) {
	if i < 0 || i >= v.Len() {
		return Entry{}, false
	}
	if v.paged != nil {
		item, ok := v.paged.At(i)
		if !ok {
			return Entry{Index: i}, true
		}
		return Entry{Item: item, Index: i, Label: v.acc.Label(item), Loaded: true}, true
	}
	return v.entries[i], true
}

// Entries returns the rows in [start, end), clamped to the view.
func (v View) Entries(start, end int) []Entry {
	start = clamp(start, 0, v.Len())
	end = clamp(end, start, v.Len())
	out := make([]Entry, 0, end-start)
	for i := start; i < end; i++ {
		e, _ := v.At(i)
		out = append(out, e)
	}
	return out
}

// IndexOfValue returns the row whose item value equals value, or -1.
func (v View) IndexOfValue(value string) int {
	if value == "" {
		return -1
	}
	for i := 0; i < v.Len(); i++ {
		e, _ := v.At(i)
		if e.Loaded && v.acc.valueOrLabel(e.Item) == value {
			return i
		}
	}
	return -1
}

// IndexOfLabel returns the row whose label equals text ignoring case, or -1.
// When several rows share the label, the one whose value equals prefer wins.
func (v View) IndexOfLabel(text, prefer string) int {
	if text == "" {
		return -1
	}
	folder := cases.Fold()
	want := folder.String(text)
	found := -1
	for i := 0; i < v.Len(); i++ {
		e, _ := v.At(i)
		if !e.Loaded || folder.String(e.Label) != want {
			continue
		}
		if prefer == "" || v.acc.valueOrLabel(e.Item) == prefer {
			return i
		}
		if found < 0 {
			found = i
		}
	}
	return found
}

// FilterEngine derives views from a store and filter text. It memoizes the
// last (store, revision, text) triple; any store mutation forces recomputation.
type FilterEngine struct {
	acc    Accessor
	folder cases.Caser

	memoStore *Store
	memoRev   uint64
	memoText  string
	memo      View
	valid     bool

	foldedStore *Store
	foldedRev   uint64
	folded      []string
}

// NewFilterEngine returns a filter engine reading labels through acc.
func NewFilterEngine(acc Accessor) *FilterEngine {
	return &FilterEngine{acc: acc, folder: cases.Fold()}
}

// Invalidate drops the memoized view.
func (f *FilterEngine) Invalidate() {
	f.valid = false
	f.folded = nil
}

// Filter returns the rows of s whose label contains text ignoring case, in
// store order. Empty text returns every row.
func (f *FilterEngine) Filter(s *Store, text string) View {
	if s.Paged() {
		return View{paged: s, acc: f.acc}
	}
	if f.valid && f.memoStore == s && f.memoRev == s.Revision() && f.memoText == text {
		return f.memo
	}

	labels := f.foldedLabels(s)
	needle := f.folder.String(text)
	entries := make([]Entry, 0, s.Len())
	s.Each(func(i int, item any) bool {
		if needle == "" || strings.Contains(labels[i], needle) {
			entries = append(entries, Entry{Item: item, Index: i, Label: f.acc.Label(item), Loaded: true})
		}
		return true
	})

	f.memo = View{entries: entries, acc: f.acc}
	f.memoStore = s
	f.memoRev = s.Revision()
	f.memoText = text
	f.valid = true
	return f.memo
}

// Matches reports whether label contains text ignoring case.
func (f *FilterEngine) Matches(label, text string) bool {
	return strings.Contains(f.folder.String(label), f.folder.String(text))
}

// foldedLabels caches case-folded labels per store revision so successive
// keystrokes only fold the needle.
func (f *FilterEngine) foldedLabels(s *Store) []string {
	if f.folded != nil && f.foldedStore == s && f.foldedRev == s.Revision() {
		return f.folded
	}
	labels := make([]string, s.Len())
	s.Each(func(i int, item any) bool {
		labels[i] = f.folder.String(f.acc.Label(item))
		return true
	})
	f.folded = labels
	f.foldedStore = s
	f.foldedRev = s.Revision()
	return labels
}
