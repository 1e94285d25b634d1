package listquery

import (
	"encoding/json"
	"fmt"
)

// PageRef points at a neighbouring page
type PageRef struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Pagination holds the neighbours of the current page, when they exist
type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// Paginate computes the neighbour descriptors for page of perPage over total rows
func Paginate(page, perPage, total int) Pagination {
	var p Pagination
	if page*perPage < total {
		p.Next = &PageRef{Page: page + 1, PerPage: perPage}
	}
	if page > 1 {
		p.Prev = &PageRef{Page: page - 1, PerPage: perPage}
	}
	return p
}

// Envelope is the list response body
type Envelope struct {
	Success    bool        `json:"success"`
	Count      int         `json:"count"`
	Total      int         `json:"total"`
	Pagination Pagination  `json:"pagination"`
	Data       interface{} `json:"data"`
}

// Envelope shapes the page for the response, applying select if present
func (r *Result[T]) Envelope() (Envelope, error) {
	env := Envelope{
		Success:    true,
		Count:      len(r.Items),
		Total:      r.Total,
		Pagination: r.Pagination,
		Data:       r.Items,
	}

	if len(r.Params.Select) == 0 {
		return env, nil
	}

	projected, err := Project(r.Items, r.Params.Select)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = projected
	return env, nil
}

// Project keeps only the named JSON keys of each item
func Project[T any](items []T, fields []string) ([]map[string]json.RawMessage, error) {
	wanted := make(map[string]bool, len(fields))
	for _, f := range fields {
		wanted[f] = true
	}

	out := make([]map[string]json.RawMessage, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("failed to encode item: %w", err)
		}

		var all map[string]json.RawMessage
		if err := json.Unmarshal(raw, &all); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}

		picked := make(map[string]json.RawMessage, len(wanted))
		for key, value := range all {
			if wanted[key] {
				picked[key] = value
			}
		}
		out = append(out, picked)
	}
	return out, nil
}
