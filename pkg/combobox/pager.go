package combobox

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultPageSize is used when a pager is created with a non-positive size.
const DefaultPageSize = 50

// PageRequest asks a provider for one page of items matching Filter.
type PageRequest struct {
	Page     int
	PageSize int
	Filter   string
}

// PageResult is a provider response. Total is the number of items matching the
// filter; a negative Total keeps the previous hint.
type PageResult struct {
	Items []any
	Total int
}

// PageFunc loads a page. Providers filter server-side: the engine does not
// re-filter paged items.
type PageFunc func(ctx context.Context, req PageRequest) (PageResult, error)

// Page is a loaded page ready to be handed to the engine.
type Page struct {
	Index  int
	Filter string
	Items  []any
	Total  int
}

// Pager caches pages from a PageFunc. Fetch may run on any goroutine; pages
// only become visible to the engine once applied through a PageLoaded event.
type Pager struct {
	fetch       PageFunc
	size        int
	concurrency int

	mu     sync.RWMutex
	filter string
	pages  map[int][]any
	failed map[int]error
	total  int

	group singleflight.Group
}

// NewPager returns a pager requesting pages of size items from fetch.
func NewPager(size int, fetch PageFunc) *Pager {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Pager{
		fetch:       fetch,
		size:        size,
		concurrency: 4,
		pages:       map[int][]any{},
		failed:      map[int]error{},
	}
}

// PageSize returns the number of items per page.
func (p *Pager) PageSize() int { return p.size }

// Filter returns the filter the cached pages belong to.
func (p *Pager) Filter() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.filter
}

// Len returns the total-count hint.
func (p *Pager) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total
}

// At returns the item at index i if its page is cached.
func (p *Pager) At(i int) (any, bool) {
	if i < 0 {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i >= p.total {
		return nil, false
	}
	page, ok := p.pages[i/p.size]
	if !ok {
		return nil, false
	}
	off := i % p.size
	if off >= len(page) {
		return nil, false
	}
	return page[off], true
}

// Each visits cached items in index order.
func (p *Pager) Each(fn func(i int, item any) bool) {
	p.mu.RLock()
	indexes := make([]int, 0, len(p.pages))
	for idx := range p.pages {
		indexes = append(indexes, idx)
	}
	pages := make(map[int][]any, len(p.pages))
	for idx, items := range p.pages {
		pages[idx] = items
	}
	total := p.total
	p.mu.RUnlock()

	sort.Ints(indexes)
	for _, idx := range indexes {
		for off, item := range pages[idx] {
			i := idx*p.size + off
			if i >= total {
				return
			}
			if !fn(i, item) {
				return
			}
		}
	}
}

// Missing lists the uncached pages covering items [first, last]. Pages that
// failed to load are not listed again. When the total is still unknown the
// first page is always reported.
func (p *Pager) Missing(first, last int) []int {
	if last < first {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if first < 0 {
		first = 0
	}
	if p.total > 0 && last >= p.total {
		last = p.total - 1
	}
	var out []int
	for idx := first / p.size; idx <= last/p.size; idx++ {
		_, cached := p.pages[idx]
		_, failed := p.failed[idx]
		if !cached && !failed {
			out = append(out, idx)
		}
	}
	if len(out) == 0 && p.total == 0 && len(p.pages) == 0 && len(p.failed) == 0 {
		out = append(out, 0)
	}
	return out
}

// Failed returns the load error recorded for page idx under the current
// filter, or nil.
func (p *Pager) Failed(idx int) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.failed[idx]
}

// complete reports whether every unfiltered item is cached, so a lookup by
// value can be trusted to be exhaustive.
func (p *Pager) complete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.filter != "" || len(p.pages) == 0 {
		return false
	}
	for idx := 0; idx*p.size < p.total; idx++ {
		if _, ok := p.pages[idx]; !ok {
			return false
		}
	}
	return true
}

// Fetch loads the uncached pages covering [first, last] for the current
// filter. Pages are fetched concurrently; concurrent requests for the same
// page share one provider call.
func (p *Pager) Fetch(ctx context.Context, first, last int) ([]Page, error) {
	filter := p.Filter()
	missing := p.Missing(first, last)
	if len(missing) == 0 {
		return nil, nil
	}

	results := make([]Page, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, idx := range missing {
		g.Go(func() error {
			key := filter + "\x00" + strconv.Itoa(idx)
			v, err, _ := p.group.Do(key, func() (any, error) {
				return p.fetch(gctx, PageRequest{Page: idx, PageSize: p.size, Filter: filter})
			})
			if err != nil {
				return fmt.Errorf("fetch page %d: %w", idx, err)
			}
			res := v.(PageResult) //nolint:forcetypeassert // Do only returns PageResult
			results[i] = Page{Index: idx, Filter: filter, Items: res.Items, Total: res.Total}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// setFilter switches the pager to a new filter and drops cached pages. It
// reports whether the filter changed.
func (p *Pager) setFilter(text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.filter == text {
		return false
	}
	p.filter = text
	p.pages = map[int][]any{}
	p.failed = map[int]error{}
	return true
}

// put caches a page. Pages fetched for a different filter are stale and
// dropped.
func (p *Pager) put(page Page) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if page.Filter != p.filter {
		return false
	}
	if len(page.Items) > p.size {
		page.Items = page.Items[:p.size]
	}
	p.pages[page.Index] = append([]any(nil), page.Items...)
	if page.Total >= 0 {
		p.total = page.Total
	}
	if end := page.Index*p.size + len(page.Items); end > p.total {
		p.total = end
	}
	return true
}

// fail records that page could not be used so it is not fetched again. It
// reports whether the page was current and not already recorded.
func (p *Pager) fail(page Page, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if page.Filter != p.filter {
		return false
	}
	if _, ok := p.failed[page.Index]; ok {
		return false
	}
	p.failed[page.Index] = err
	if page.Total >= 0 {
		p.total = page.Total
	}
	return true
}

// reset drops all cached pages, recorded failures and the count hint.
func (p *Pager) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages = map[int][]any{}
	p.failed = map[int]error{}
	p.total = 0
}
