package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"librarydesk/pkg/models"
)

func (c *Client) Login(ctx context.Context, req models.LoginRequest) (models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &user)
	return user, err
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &user)
	return user, err
}

func (c *Client) AddFavorite(ctx context.Context, bookID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/favorites/%d", bookID), nil, struct{}{}, nil)
}

func (c *Client) RemoveFavorite(ctx context.Context, bookID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/favorites/%d", bookID), nil, nil, nil)
}

func (c *Client) Favorites(ctx context.Context) ([]models.ShelfEntry, error) {
	page, err := getPage[models.ShelfEntry](ctx, c, "/favorites", nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) AddToReadingList(ctx context.Context, bookID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/reading-list/%d", bookID), nil, struct{}{}, nil)
}

func (c *Client) RemoveFromReadingList(ctx context.Context, bookID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/reading-list/%d", bookID), nil, nil, nil)
}

func (c *Client) ReadingList(ctx context.Context) ([]models.ShelfEntry, error) {
	page, err := getPage[models.ShelfEntry](ctx, c, "/reading-list", nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) BookRatings(ctx context.Context, bookID int64) ([]models.Rating, error) {
	page, err := getPage[models.Rating](ctx, c, fmt.Sprintf("/ratings/book/%d", bookID), nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) AverageRating(ctx context.Context, bookID int64) (float64, error) {
	var avg float64
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/ratings/average/%d", bookID), nil, nil, &avg)
	return avg, err
}

func (c *Client) AddRating(ctx context.Context, req models.RatingRequest) (models.Rating, error) {
	var rating models.Rating
	err := c.do(ctx, http.MethodPost, "/ratings", nil, req, &rating)
	return rating, err
}

func (c *Client) DeleteRating(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/ratings/%d", id), nil, nil, nil)
}

func limitQuery(limit int) url.Values {
	if limit <= 0 {
		limit = 10
	}
	return url.Values{"limit": []string{strconv.Itoa(limit)}}
}

func (c *Client) MostReadCategories(ctx context.Context, limit int) ([]models.CategoryReport, error) {
	var out []models.CategoryReport
	err := c.do(ctx, http.MethodGet, "/reporting/categories/most-read", limitQuery(limit), nil, &out)
	return out, err
}

func (c *Client) MostActiveMembers(ctx context.Context, limit int) ([]models.MemberActivity, error) {
	var out []models.MemberActivity
	err := c.do(ctx, http.MethodGet, "/reporting/members/most-active", limitQuery(limit), nil, &out)
	return out, err
}

func (c *Client) BookStatusDistribution(ctx context.Context) ([]models.BookStatusReport, error) {
	var out []models.BookStatusReport
	err := c.do(ctx, http.MethodGet, "/reporting/books/status-distribution", nil, nil, &out)
	return out, err
}
