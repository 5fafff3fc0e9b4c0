package apiclient

import (
	"bytes"
	"fmt"
)

// Page is one page of a list response. Unpaginated responses come back as a
// single page.
type Page[T any] struct {
	Items      []T
	TotalPages int
}

// DecodePage accepts either {"content": [...], "totalPages": n} or a bare
// array. An object without "content" yields an empty single page.
func DecodePage[T any](data []byte) (Page[T], error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Page[T]{Items: []T{}, TotalPages: 1}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Page[T]{}, fmt.Errorf("failed to decode list: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return Page[T]{Items: items, TotalPages: 1}, nil
	}

	var envelope struct {
		Content    *[]T `json:"content"`
		TotalPages int  `json:"totalPages"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return Page[T]{}, fmt.Errorf("failed to decode page: %w", err)
	}
	if envelope.Content == nil {
		return Page[T]{Items: []T{}, TotalPages: 1}, nil
	}
	page := Page[T]{Items: *envelope.Content, TotalPages: envelope.TotalPages}
	if page.Items == nil {
		page.Items = []T{}
	}
	if page.TotalPages < 1 {
		page.TotalPages = 1
	}
	return page, nil
}
