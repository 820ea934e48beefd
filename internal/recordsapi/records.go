package recordsapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
)

// AllRecords calls GET /records and returns every contract.
func (c *Client) AllRecords(ctx context.Context) ([]revenue.Contract, error) {
	var records []Record
	if err := c.get(ctx, "/records", nil, &records); err != nil {
		return nil, err
	}
	return Contracts(records)
}

// PagedRecords calls GET /records/page with limit and offset.
func (c *Client) PagedRecords(ctx context.Context, limit, offset int) ([]revenue.Contract, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("page limit must be positive, got %d", limit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("page offset must not be negative, got %d", offset)
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var records []Record
	if err := c.get(ctx, "/records/page", query, &records); err != nil {
		return nil, err
	}
	return Contracts(records)
}

// TotalRecords calls GET /records/count.
func (c *Client) TotalRecords(ctx context.Context) (int, error) {
	var out CountResponse
	if err := c.get(ctx, "/records/count", nil, &out); err != nil {
		return 0, err
	}
	return out.Total, nil
}

// Ping calls GET /ping and returns nil only when status is 200.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/ping", nil, nil)
}
