package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"librarydesk/pkg/models"
)

type BookQuery struct {
	Page       int // zero-based
	Size       int
	Search     string
	CategoryID int64
}

func (q BookQuery) values() url.Values {
	v := url.Values{}
	size := q.Size
	if size <= 0 {
		size = 10
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(size))
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.CategoryID != 0 {
		v.Set("categoryId", strconv.FormatInt(q.CategoryID, 10))
	}
	return v
}

func getPage[T any](ctx context.Context, c *Client, path string, query url.Values) (Page[T], error) {
	data, err := c.send(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return Page[T]{}, err
	}
	return DecodePage[T](data)
}

func (c *Client) ListBooks(ctx context.Context, q BookQuery) (Page[models.RawBook], error) {
	return getPage[models.RawBook](ctx, c, "/books", q.values())
}

func (c *Client) GetBook(ctx context.Context, id int64) (models.RawBook, error) {
	var book models.RawBook
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/books/%d", id), nil, nil, &book)
	return book, err
}

func (c *Client) CreateBook(ctx context.Context, book models.BookWrite) (models.RawBook, error) {
	var saved models.RawBook
	err := c.do(ctx, http.MethodPost, "/books", nil, book, &saved)
	return saved, err
}

func (c *Client) UpdateBook(ctx context.Context, id int64, book models.BookWrite) (models.RawBook, error) {
	var saved models.RawBook
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/books/%d", id), nil, book, &saved)
	return saved, err
}

func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/books/%d", id), nil, nil, nil)
}

func (c *Client) ListCopies(ctx context.Context, bookID int64) ([]models.Copy, error) {
	page, err := getPage[models.Copy](ctx, c, fmt.Sprintf("/books/%d/copies", bookID), nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// AddCopy creates one copy. An empty barcode lets the server generate one.
func (c *Client) AddCopy(ctx context.Context, bookID int64, barcode string) (models.Copy, error) {
	var query url.Values
	if barcode != "" {
		query = url.Values{"barcode": []string{barcode}}
	}
	var created models.Copy
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/books/%d/copies", bookID), query, nil, &created)
	return created, err
}

func (c *Client) DeleteCopy(ctx context.Context, copyID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/books/copies/%d", copyID), nil, nil, nil)
}
