// Package limiter windows an item collection by offset, limit or tail before
// it reaches the selector.
package limiter

import "fmt"

// Config holds the windowing parameters.
type Config struct {
	Limit  int // Keep only this many items (0 = unlimited)
	Offset int // Skip the first N items (0 = no skip)
	Tail   int // Keep only the last N items (0 = disabled); mutually exclusive with Limit
}

// Validate rejects negative values and Limit combined with Tail. Offset is
// ignored when Tail is set.
func (c Config) Validate() error {
	if c.Limit < 0 {
		return fmt.Errorf("--limit must be non-negative, got %d", c.Limit)
	}
	if c.Offset < 0 {
		return fmt.Errorf("--offset must be non-negative, got %d", c.Offset)
	}
	if c.Tail < 0 {
		return fmt.Errorf("--tail must be non-negative, got %d", c.Tail)
	}
	if c.Limit > 0 && c.Tail > 0 {
		return fmt.Errorf("--limit and --tail are mutually exclusive")
	}
	return nil
}

// IsActive reports whether any windowing is configured.
func (c Config) IsActive() bool {
	return c.Limit > 0 || c.Offset > 0 || c.Tail > 0
}

// Bounds returns the half-open range of a collection of the given length that
// survives windowing.
func (c Config) Bounds(length int) (start, end int) {
	if c.Tail > 0 {
		return max(length-c.Tail, 0), length
	}
	start = min(max(c.Offset, 0), length)
	end = length
	if c.Limit > 0 {
		end = min(start+c.Limit, length)
	}
	return start, end
}

// Apply returns the windowed items. The result shares the backing array.
func (c Config) Apply(items []any) []any {
	if !c.IsActive() {
		return items
	}
	start, end := c.Bounds(len(items))
	return items[start:end]
}

// Len returns the number of items left from a collection of length items.
func (c Config) Len(length int) int {
	start, end := c.Bounds(length)
	return end - start
}
