// Package pagination slices ordered listings into pages.
package pagination

import (
	"math"
	"strconv"

	"github.com/Proton-105/users-backend/internal/domain"
	"github.com/Proton-105/users-backend/internal/validation"
)

const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 20
)

// Limits bounds the page size a caller may request.
type Limits struct {
	DefaultSize int
	MaxSize     int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{DefaultSize: DefaultSize, MaxSize: MaxSize}
}

func (l Limits) normalized() Limits {
	if l.MaxSize < 1 {
		l.MaxSize = MaxSize
	}
	if l.DefaultSize < 1 || l.DefaultSize > l.MaxSize {
		l.DefaultSize = min(DefaultSize, l.MaxSize)
	}
	return l
}

// Params selects one page of a listing. Page is 1-based.
type Params struct {
	Page int
	Size int
}

// Validate checks that page >= 1 and 1 <= size <= limits.MaxSize.
func (p Params) Validate(limits Limits) error {
	limits = limits.normalized()

	var errs validation.Errors
	if fe := validation.Min(p.Page, 1, validation.Query("page"), strconv.Itoa(p.Page)); fe != nil {
		errs = append(errs, *fe)
	}
	if fe := validation.Min(p.Size, 1, validation.Query("size"), strconv.Itoa(p.Size)); fe != nil {
		errs = append(errs, *fe)
	}
	if fe := validation.Max(p.Size, limits.MaxSize, validation.Query("size"), strconv.Itoa(p.Size)); fe != nil {
		errs = append(errs, *fe)
	}
	return errs.OrNil()
}

// Offset is the index of the first item on the page. It saturates at
// math.MaxInt for pages too far out to address, which read as past the end.
func (p Params) Offset() int {
	if p.Page < 1 || p.Size < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Size
}

// Parse reads page and size query values. Empty values take their defaults.
func Parse(pageRaw, sizeRaw string, limits Limits) (Params, error) {
	limits = limits.normalized()
	params := Params{Page: DefaultPage, Size: limits.DefaultSize}

	var errs validation.Errors
	if pageRaw != "" {
		n, fe := validation.ParseQueryInt(pageRaw, validation.Query("page"))
		if fe != nil {
			errs = append(errs, *fe)
		} else if fe := validation.Min(n, 1, validation.Query("page"), pageRaw); fe != nil {
			errs = append(errs, *fe)
		} else {
			params.Page = n
		}
	}
	if sizeRaw != "" {
		n, fe := validation.ParseQueryInt(sizeRaw, validation.Query("size"))
		if fe != nil {
			errs = append(errs, *fe)
		} else if fe := validation.Min(n, 1, validation.Query("size"), sizeRaw); fe != nil {
			errs = append(errs, *fe)
		} else if fe := validation.Max(n, limits.MaxSize, validation.Query("size"), sizeRaw); fe != nil {
			errs = append(errs, *fe)
		} else {
			params.Size = n
		}
	}

	if len(errs) > 0 {
		return Params{}, errs
	}
	return params, nil
}

// Window returns up to limit items starting at offset. An offset past the
// end yields an empty slice, not an error.
func Window[T any](items []T, offset, limit int) []T {
	if offset < 0 || limit < 1 || offset >= len(items) {
		return []T{}
	}
	return items[offset : offset+min(limit, len(items)-offset)]
}

// NewPage wraps an already sliced page with its metadata.
func NewPage[T any](items []T, p Params, total int) domain.Page[T] {
	if items == nil {
		items = []T{}
	}

	return domain.Page[T]{
		Items: items,
		Page:  p.Page,
		Size:  p.Size,
		Total: total,
		Pages: Pages(total, p.Size),
	}
}

// Pages returns how many pages of size hold total items.
func Pages(total, size int) int {
	if size < 1 || total < 1 {
		return 0
	}
	return (total + size - 1) / size
}
