package query

import (
	"net/url"
	"sort"
	"strings"

	"github.com/restview/restview/pkg/apperror"
)

// NodeKind tags a filter tree node.
type NodeKind int

const (
	NodeLeaf NodeKind = iota
	NodeAnd
	NodeOr
	NodeNot
)

// Node is one node of the parsed filter tree: either a leaf binding a field
// to an operator, or a logical combinator over child nodes. Not has exactly
// one child; And and Or have at least one.
type Node struct {
	Kind     NodeKind
	Field    string
	Op       Operator
	Children []*Node
}

func Leaf(field string, op Operator) *Node {
	return &Node{Kind: NodeLeaf, Field: field, Op: op}
}

func And(children ...*Node) *Node {
	return &Node{Kind: NodeAnd, Children: children}
}

func Or(children ...*Node) *Node {
	return &Node{Kind: NodeOr, Children: children}
}

func Not(child *Node) *Node {
	return &Node{Kind: NodeNot, Children: []*Node{child}}
}

// reserved query keys excluded from leaf processing
var reservedKeys = map[string]bool{
	"page": true,
	"size": true,
	"sort": true,
	"q":    true,
	"and":  true,
	"or":   true,
	"not":  true,
}

// Reserved reports whether key is claimed by the query language itself.
func Reserved(key string) bool { return reservedKeys[key] }

// ParseFilter consumes the non-reserved query parameters and produces the
// filter tree: an implicit top-level And over field leaves and any and/or/not
// groups. Every non-reserved key must be on the allow-list; an unknown key
// rejects the whole request. Returns nil when nothing filters.
func ParseFilter(values url.Values, allowed []string) (*Node, error) {
	allowedSet := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		allowedSet[f] = true
	}

	fields := make([]string, 0, len(values))
	for key := range values {
		if reservedKeys[key] {
			continue
		}
		if !allowedSet[key] {
			return nil, apperror.UnknownFilterField(key)
		}
		fields = append(fields, key)
	}
	sort.Strings(fields)

	var children []*Node
	for _, field := range fields {
		node, err := decodeFieldValues(field, values[field])
		if err != nil {
			return nil, err
		}
		children = append(children, node)
	}

	for _, key := range []string{"and", "or", "not"} {
		for _, raw := range values[key] {
			group, err := parseGroup(key, raw, allowedSet)
			if err != nil {
				return nil, err
			}
			children = append(children, group)
		}
	}

	if len(children) == 0 {
		return nil, nil
	}
	return And(children...), nil
}

// decodeFieldValues handles one query key. A single value becomes a leaf,
// with parenthesized text decoding as an ordinary string. Repeated
// occurrences of the same key each decode independently and merge under an
// And: the first occurrence establishes the key, later ones wrap.
func decodeFieldValues(field string, raws []string) (*Node, error) {
	leaves := make([]*Node, 0, len(raws))
	for _, raw := range raws {
		if len(raws) > 1 && isGroup(raw) {
			// a grouped expression inside a repeated value would decode to
			// more than one key; refuse rather than guess
			return nil, apperror.NotImplemented(
				"grouped expression not supported in repeated value").WithField(field)
		}
		op, err := DecodeOperator(raw)
		if err != nil {
			return nil, apperror.AttachField(err, field)
		}
		leaves = append(leaves, Leaf(field, op))
	}
	if len(leaves) == 1 {
		return leaves[0], nil
	}
	return And(leaves...), nil
}

func isGroup(raw string) bool {
	return len(raw) >= 2 && raw[0] == '(' && raw[len(raw)-1] == ')'
}

// parseGroup parses a parenthesized sub-expression for and=, or= or not=.
// Grammar: group := "(" entry ("|" entry)* ")", entry := field "=" value |
// combinator "=" group. Splitting respects nested parentheses, so no string
// substitution or re-tokenizing is involved.
func parseGroup(kind, raw string, allowed map[string]bool) (*Node, error) {
	if !isGroup(raw) {
		return nil, apperror.InvalidOperator("%s group must be parenthesized, got %q", kind, raw)
	}

	entries := splitTopLevel(raw[1:len(raw)-1], '|')

	var children []*Node
	leafIndex := make(map[string]int) // field -> index in children, for dup merging
	for _, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			return nil, apperror.InvalidOperator("empty entry in %s group", kind)
		}
		key, value, found := strings.Cut(entry, "=")
		if !found {
			return nil, apperror.InvalidOperator("entry %q in %s group is not key=value", entry, kind)
		}

		if key == "and" || key == "or" || key == "not" {
			nested, err := parseGroup(key, value, allowed)
			if err != nil {
				return nil, err
			}
			children = append(children, nested)
			continue
		}

		if !allowed[key] {
			return nil, apperror.UnknownFilterField(key)
		}
		op, err := DecodeOperator(value)
		if err != nil {
			return nil, apperror.AttachField(err, key)
		}
		leaf := Leaf(key, op)

		// duplicate unwrapped key at one level auto-merges into an And
		if i, dup := leafIndex[key]; dup {
			if children[i].Kind == NodeAnd {
				children[i].Children = append(children[i].Children, leaf)
			} else {
				children[i] = And(children[i], leaf)
			}
			continue
		}
		leafIndex[key] = len(children)
		children = append(children, leaf)
	}

	if len(children) == 0 {
		return nil, apperror.InvalidOperator("%s group has no entries", kind)
	}

	switch kind {
	case "and":
		return And(children...), nil
	case "or":
		return Or(children...), nil
	default: // not takes exactly one child; multiple entries conjoin first
		if len(children) == 1 {
			return Not(children[0]), nil
		}
		return Not(And(children...)), nil
	}
}

// splitTopLevel splits s on sep, ignoring separators inside parentheses.
func splitTopLevel(s string, sep rune) []string {
	var parts []string
	var current strings.Builder
	depth := 0

	for _, char := range s {
		switch char {
		case '(':
			depth++
			current.WriteRune(char)
		case ')':
			depth--
			current.WriteRune(char)
		case sep:
			if depth == 0 {
				parts = append(parts, current.String())
				current.Reset()
			} else {
				current.WriteRune(char)
			}
		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}
