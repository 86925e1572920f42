package query

import "strconv"

// PageMode controls whether a listing paginates.
type PageMode int

const (
	// PageAuto paginates exactly when the request carries a page parameter.
	PageAuto PageMode = iota
	// PageForced always paginates.
	PageForced
	// PageDisabled never paginates.
	PageDisabled
)

// ParsePageMode maps a config string to a PageMode. Unrecognized values fall
// back to auto.
func ParsePageMode(s string) PageMode {
	switch s {
	case "forced", "always":
		return PageForced
	case "disabled", "never":
		return PageDisabled
	default:
		return PageAuto
	}
}

// Page is the resolved pagination of one listing request. Enabled is
// computed from mode and request, never requested directly.
type Page struct {
	Enabled bool
	Number  int
	Size    int
}

// ResolvePage decides pagination from the raw page parameter (empty when
// absent), the configured mode, and the configured page size. Page numbers
// below 1, and unparsable ones, default to 1.
func ResolvePage(rawPage string, mode PageMode, size int) Page {
	enabled := mode == PageForced || (mode == PageAuto && rawPage != "")
	if !enabled {
		return Page{}
	}

	number, err := strconv.Atoi(rawPage)
	if err != nil || number < 1 {
		number = 1
	}
	if size < 1 {
		size = 1
	}
	return Page{Enabled: true, Number: number, Size: size}
}

// Offset is the row offset of this page.
func (p Page) Offset() int {
	if !p.Enabled {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// PageCount computes the number of pages covering count rows.
func (p Page) PageCount(count int) int {
	if !p.Enabled || count <= 0 {
		return 0
	}
	return (count + p.Size - 1) / p.Size
}
