// Package paginate slices a full result set into pages and computes
// navigation metadata. Pagination never fails: out-of-range input degrades
// to an empty page.
package paginate

import "github.com/civicpulse/billtracker/models"

// DefaultPageSize is used for any requested size outside the allow-list.
const DefaultPageSize = 10

// Limits holds the page-size policy. Requested sizes outside Allowed clamp
// to Default (hard default, not nearest-match).
type Limits struct {
	Allowed []int
	Default int
}

// DefaultLimits returns the standard {10, 20, 50} allow-list.
func DefaultLimits() Limits {
	return Limits{Allowed: []int{10, 20, 50}, Default: DefaultPageSize}
}

// Clamp returns size when allowed, the default otherwise.
func (l Limits) Clamp(size int) int {
	for _, allowed := range l.Allowed {
		if size == allowed {
			return size
		}
	}
	if l.Default > 0 {
		return l.Default
	}
	return DefaultPageSize
}

// Engine paginates result sets under one page-size policy.
type Engine struct {
	limits Limits
}

func NewEngine(limits Limits) Engine {
	if len(limits.Allowed) == 0 {
		limits = DefaultLimits()
	}
	return Engine{limits: limits}
}

// Page slices items into the requested 1-indexed page. A page number beyond
// the last page yields an empty item slice with HasNext=false rather than an
// error; HasPrev still reflects the requested page number.
func (e Engine) Page(items []models.BillRecord, page, size int) models.PageResult {
	size = e.limits.Clamp(size)
	if page < 1 {
		page = 1
	}

	total := len(items)
	start := (page - 1) * size
	end := start + size

	pageItems := []models.BillRecord{}
	if start < total {
		if end > total {
			end = total
		}
		pageItems = items[start:end]
	}

	return models.PageResult{
		Items:      pageItems,
		PageNumber: page,
		PageSize:   size,
		TotalCount: total,
		HasNext:    page*size < total,
		HasPrev:    page > 1,
	}
}
