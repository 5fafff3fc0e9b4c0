package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"librarydesk/pkg/models"
)

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	page, err := getPage[models.Category](ctx, c, "/categories", nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) GetCategory(ctx context.Context, id int64) (models.Category, error) {
	var category models.Category
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/categories/%d", id), nil, nil, &category)
	return category, err
}

func (c *Client) CreateCategory(ctx context.Context, category models.Category) (models.Category, error) {
	category.ID = 0
	var saved models.Category
	err := c.do(ctx, http.MethodPost, "/categories", nil, category, &saved)
	return saved, err
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, category models.Category) (models.Category, error) {
	var saved models.Category
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/categories/%d", id), nil, category, &saved)
	return saved, err
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil, nil, nil)
}

func (c *Client) ListPublishers(ctx context.Context) ([]models.Publisher, error) {
	page, err := getPage[models.Publisher](ctx, c, "/publishers", nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) GetPublisher(ctx context.Context, id int64) (models.Publisher, error) {
	var publisher models.Publisher
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/publishers/%d", id), nil, nil, &publisher)
	return publisher, err
}

func (c *Client) CreatePublisher(ctx context.Context, publisher models.Publisher) (models.Publisher, error) {
	publisher.ID = 0
	var saved models.Publisher
	err := c.do(ctx, http.MethodPost, "/publishers", nil, publisher, &saved)
	return saved, err
}

func (c *Client) UpdatePublisher(ctx context.Context, id int64, publisher models.Publisher) (models.Publisher, error) {
	var saved models.Publisher
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/publishers/%d", id), nil, publisher, &saved)
	return saved, err
}

func (c *Client) DeletePublisher(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/publishers/%d", id), nil, nil, nil)
}
