// Package listquery turns list-endpoint query strings into filtered, sorted
// and paginated SQL, and shapes the result into the response envelope.
//
// Grammar:
//
//	field=value            equality (repeated keys become set membership)
//	field[op]=value        op is one of gt, gte, lt, lte, in (in takes a,b,c)
//	select=a,b             restrict returned fields (id always included)
//	order_by=a,-b          ascending a, then descending b
//	page=2&per_page=20     1-indexed page, page size
//
// Unknown fields are ignored. page and per_page fall back to their defaults
// when malformed instead of failing the request.
package listquery

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/campusdirectory/facility-api/pkg/apperror"
	"github.com/google/uuid"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// Reserved parameters never become filters
var reserved = map[string]bool{
	"select":   true,
	"order_by": true,
	"page":     true,
	"per_page": true,
}

// Operator is a filter comparison
type Operator string

const (
	OpEq  Operator = "eq"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
	OpIn  Operator = "in"
)

// FieldKind decides how a raw query value is converted before it reaches SQL
type FieldKind int

const (
	Text FieldKind = iota
	Integer
	Float
	UUID
	Time
	// Structured marks jsonb and array columns. They can be selected but not
	// filtered or sorted on.
	Structured
)

// Field maps an API field name to a column
type Field struct {
	Column string
	Kind   FieldKind
}

// Resource describes a listable table
type Resource struct {
	Table   string
	Columns []string         // columns loaded into the item struct
	Fields  map[string]Field // selectable API fields; all but Structured filter and sort
	// Expansions are JSON keys added by relation expansion. They are
	// selectable by name like any field.
	Expansions []string
}

// Filter is one parsed comparison
type Filter struct {
	Field  string
	Column string
	Op     Operator
	Values []interface{}
}

// Order is one sort key
type Order struct {
	Field      string
	Column     string
	Descending bool
}

// Params is a parsed list request
type Params struct {
	Filters []Filter
	Select  []string
	Order   []Order
	Page    int
	PerPage int
}

// Offset returns the number of rows skipped before the current page
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

var bracketKey = regexp.MustCompile(`^([A-Za-z0-9_]+)\[(gt|gte|lt|lte|in)\]$`)

// Parse reads a list request for res. Only filter values that cannot be
// converted to their field's type produce an error.
func Parse(values url.Values, res Resource) (Params, error) {
	params := Params{
		Page:    parsePositive(values.Get("page"), DefaultPage),
		PerPage: parsePositive(values.Get("per_page"), DefaultPerPage),
		Select:  parseSelect(values.Get("select"), res),
		Order:   parseOrder(values.Get("order_by"), res),
	}
	if params.PerPage > MaxPerPage {
		params.PerPage = MaxPerPage
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if reserved[key] {
			continue
		}

		name, op := key, OpEq
		if m := bracketKey.FindStringSubmatch(key); m != nil {
			name, op = m[1], Operator(m[2])
		}

		field, ok := res.Fields[name]
		if !ok || field.Kind == Structured {
			continue
		}

		raw := values[key]
		if op == OpIn {
			raw = splitList(raw)
		}
		if op == OpEq && len(raw) > 1 {
			op = OpIn
		}
		if len(raw) == 0 {
			continue
		}
		if op != OpIn {
			raw = raw[:1]
		}

		converted := make([]interface{}, 0, len(raw))
		for _, r := range raw {
			v, err := convert(r, field.Kind)
			if err != nil {
				return Params{}, apperror.Validation(fmt.Sprintf("Invalid value '%s' for %s", r, name))
			}
			converted = append(converted, v)
		}

		params.Filters = append(params.Filters, Filter{
			Field:  name,
			Column: field.Column,
			Op:     op,
			Values: converted,
		})
	}

	return params, nil
}

func parsePositive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func parseSelect(raw string, res Resource) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	selected := []string{"id"}
	for _, name := range splitList([]string{raw}) {
		if name == "id" {
			continue
		}
		if _, ok := res.Fields[name]; ok || res.expands(name) {
			selected = append(selected, name)
		}
	}
	return selected
}

func (res Resource) expands(name string) bool {
	for _, e := range res.Expansions {
		if e == name {
			return true
		}
	}
	return false
}

func parseOrder(raw string, res Resource) []Order {
	var orders []Order
	for _, name := range splitList([]string{raw}) {
		desc := strings.HasPrefix(name, "-")
		name = strings.TrimPrefix(name, "-")
		field, ok := res.Fields[name]
		if !ok || field.Kind == Structured {
			continue
		}
		orders = append(orders, Order{Field: name, Column: field.Column, Descending: desc})
	}
	if len(orders) == 0 {
		orders = []Order{{Field: "createdAt", Column: "created_at", Descending: true}}
	}
	return orders
}

func splitList(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func convert(raw string, kind FieldKind) (interface{}, error) {
	switch kind {
	case Integer:
		return strconv.ParseInt(raw, 10, 64)
	case Float:
		return strconv.ParseFloat(raw, 64)
	case UUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		return id.String(), nil
	case Time:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t, nil
		}
		return time.Parse("2006-01-02", raw)
	default:
		return raw, nil
	}
}
