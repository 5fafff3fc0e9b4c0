package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"librarydesk/pkg/models"
)

func (c *Client) ListLoans(ctx context.Context, page, size int) (Page[models.RawLoan], error) {
	if size <= 0 {
		size = 20
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))
	return getPage[models.RawLoan](ctx, c, "/loans", query)
}

func (c *Client) MemberLoans(ctx context.Context, memberID int64) ([]models.RawLoan, error) {
	page, err := getPage[models.RawLoan](ctx, c, fmt.Sprintf("/loans/member/%d", memberID), nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) AdminLoans(ctx context.Context) ([]models.RawLoan, error) {
	page, err := getPage[models.RawLoan](ctx, c, "/loans/admin/all", nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) Borrow(ctx context.Context, req models.BorrowRequest) (models.RawLoan, error) {
	var loan models.RawLoan
	err := c.do(ctx, http.MethodPost, "/loans/borrow", nil, req, &loan)
	return loan, err
}

func (c *Client) CreateLoan(ctx context.Context, req models.BorrowRequest) (models.RawLoan, error) {
	var loan models.RawLoan
	err := c.do(ctx, http.MethodPost, "/loans", nil, req, &loan)
	return loan, err
}

func (c *Client) ReturnLoan(ctx context.Context, loanID int64) (models.RawLoan, error) {
	var loan models.RawLoan
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/loans/%d/return", loanID), nil, nil, &loan)
	return loan, err
}

func (c *Client) ListReservations(ctx context.Context) ([]models.RawReservation, error) {
	page, err := getPage[models.RawReservation](ctx, c, "/reservations", nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) CreateReservation(ctx context.Context, req models.ReservationRequest) (models.RawReservation, error) {
	var res models.RawReservation
	err := c.do(ctx, http.MethodPost, "/reservations", nil, req, &res)
	return res, err
}

func (c *Client) CancelReservation(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/reservations/%d", id), nil, nil, nil)
}
