package query

import (
	"regexp"
	"strings"

	"github.com/restview/restview/pkg/apperror"
)

// Direction of one ordering term.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// OrderField is one (field, direction) pair of an ordering.
type OrderField struct {
	Field     string
	Direction Direction
}

// OrderSpec is the ordered list of sort terms for a listing.
type OrderSpec []OrderField

// OrderParser validates sort strings against a fixed field allow-list. The
// pattern is compiled once per allow-list (at resource registration), not per
// request.
type OrderParser struct {
	re *regexp.Regexp
}

// NewOrderParser compiles the validation pattern over exactly the allowed
// field set: comma-separated terms, each an optional leading "-" followed by
// one allowed field name.
func NewOrderParser(allowed []string) *OrderParser {
	quoted := make([]string, len(allowed))
	for i, f := range allowed {
		quoted[i] = regexp.QuoteMeta(f)
	}
	fields := strings.Join(quoted, "|")
	return &OrderParser{
		re: regexp.MustCompile(`^-?(?:` + fields + `)(?:,-?(?:` + fields + `))*$`),
	}
}

// Parse turns "a,-b" into an OrderSpec. Empty input yields nil. Any term
// outside the allow-list, or any malformed token, fails validation as a whole
// rather than dropping the offending term.
func (p *OrderParser) Parse(raw string) (OrderSpec, error) {
	if raw == "" {
		return nil, nil
	}
	if !p.re.MatchString(raw) {
		return nil, apperror.InvalidOrderSpec("sort %q references unknown or malformed fields", raw)
	}

	terms := strings.Split(raw, ",")
	spec := make(OrderSpec, 0, len(terms))
	for _, term := range terms {
		dir := Asc
		if strings.HasPrefix(term, "-") {
			dir = Desc
			term = term[1:]
		}
		spec = append(spec, OrderField{Field: term, Direction: dir})
	}
	return spec, nil
}
