package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/quizbd/quizbd-go/internal/domain"
	"github.com/quizbd/quizbd-go/internal/errors"
)

// GetPrice returns the unlock price of one subject for one class level.
func (c *Client) GetPrice(ctx context.Context, classLevel int, subject string) (decimal.Decimal, error) {
	path := fmt.Sprintf("/prices?classLevel=%d&subject=%s", classLevel, url.QueryEscape(subject))

	var resp struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return decimal.Zero, err
	}

	return resp.Price, nil
}

// ListPrices returns the whole price table.
func (c *Client) ListPrices(ctx context.Context) ([]domain.Price, error) {
	var ps []domain.Price
	if err := c.do(ctx, http.MethodGet, "/prices/all", nil, &ps); err != nil {
		return nil, err
	}

	return ps, nil
}

// SetPrice upserts one price table entry. Teacher-only on the server side.
func (c *Client) SetPrice(ctx context.Context, p domain.Price) error {
	return c.do(ctx, http.MethodPost, "/prices", p, nil)
}

// CheckPurchase reports whether the subject is unlocked for the student.
func (c *Client) CheckPurchase(ctx context.Context, classLevel int, subject string) (bool, error) {
	path := fmt.Sprintf("/purchase/check?classLevel=%d&subject=%s", classLevel, url.QueryEscape(subject))

	var resp struct {
		Unlocked bool `json:"unlocked"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}

	return resp.Unlocked, nil
}

// PurchasedSubjects lists the subjects the student already unlocked.
func (c *Client) PurchasedSubjects(ctx context.Context, classLevel int) ([]string, error) {
	var subjects []string
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/subjects/purchased?classLevel=%d", classLevel), nil, &subjects)
	if err != nil {
		return nil, err
	}

	return subjects, nil
}

type InitiatePaymentRequest struct {
	Subject    string `json:"subject"`
	ClassLevel int    `json:"classLevel"`
}

// InitiatePayment starts a checkout and returns the hosted gateway URL the
// user must visit. The gateway page itself is outside this client.
func (c *Client) InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (string, error) {
	var resp struct {
		GatewayURL string `json:"gatewayURL"`
	}
	if err := c.do(ctx, http.MethodPost, "/payments/initiate", req, &resp); err != nil {
		return "", err
	}

	if resp.GatewayURL == "" {
		return "", errors.New(errors.CodeInternal, errors.WithMessagef("gateway URL missing"))
	}

	return resp.GatewayURL, nil
}
