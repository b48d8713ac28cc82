package daily

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type PhoneNumber struct {
	ID     string `json:"id,omitempty"`
	Number string `json:"number"`
	Region string `json:"region,omitempty"`
}

type phoneNumberList struct {
	TotalCount int           `json:"total_count"`
	Data       []PhoneNumber `json:"data"`
}

// ListAvailableNumbers lists numbers that can be bought in an area code.
func (c *Client) ListAvailableNumbers(ctx context.Context, areaCode string) ([]PhoneNumber, error) {
	query := url.Values{}
	if areaCode != "" {
		query.Set("areacode", areaCode)
	}
	var resp phoneNumberList
	if err := c.do(ctx, http.MethodGet, "/list-available-numbers", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list available numbers: %w", err)
	}
	return resp.Data, nil
}

// ListPurchasedNumbers lists numbers owned by the domain.
func (c *Client) ListPurchasedNumbers(ctx context.Context) ([]PhoneNumber, error) {
	var resp phoneNumberList
	if err := c.do(ctx, http.MethodGet, "/purchased-phone-numbers", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list purchased numbers: %w", err)
	}
	return resp.Data, nil
}

// BuyNumber purchases a number. An empty number lets Daily pick one.
func (c *Client) BuyNumber(ctx context.Context, number string) (PhoneNumber, error) {
	body := map[string]string{}
	if number != "" {
		body["number"] = number
	}
	var resp PhoneNumber
	if err := c.do(ctx, http.MethodPost, "/buy-phone-number", nil, body, &resp); err != nil {
		return PhoneNumber{}, fmt.Errorf("failed to buy number: %w", err)
	}
	return resp, nil
}
