package db

import (
	"context"
	"fmt"
)

const insertQuoteRequest = `-- name: InsertQuoteRequest :one
INSERT INTO quote_requests (request_id, destination_zipcode, declared_value, weight, volume, item_count)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, created_at`

const insertQuoteOffer = `-- name: InsertQuoteOffer :exec
INSERT INTO quote_offers (quote_request_id, position, name, service, price, days, quote_id)
VALUES (?, ?, ?, ?, ?, ?, ?)`

const listRecentQuoteRequests = `-- name: ListRecentQuoteRequests :many
SELECT id, request_id, destination_zipcode, declared_value, weight, volume, item_count, created_at
FROM quote_requests
ORDER BY id DESC
LIMIT ?`

const listQuoteOffers = `-- name: ListQuoteOffers :many
SELECT name, service, price, days, quote_id
FROM quote_offers
WHERE quote_request_id = ?
ORDER BY position`

// QuoteOffer is one quote row. Prices are stored as fixed-point text.
type QuoteOffer struct {
	Name    string
	Service string
	Price   string
	Days    int64
	QuoteID string
}

// InsertQuoteRequestParams describes one computed quote set.
type InsertQuoteRequestParams struct {
	RequestID          string
	DestinationZipcode string
	DeclaredValue      string
	Weight             string
	Volume             string
	ItemCount          int64
	Offers             []QuoteOffer
}

// QuoteRequest is a stored quote set with its offers in response order.
type QuoteRequest struct {
	ID                 int64
	RequestID          string
	DestinationZipcode string
	DeclaredValue      string
	Weight             string
	Volume             string
	ItemCount          int64
	CreatedAt          string
	Offers             []QuoteOffer
}

// InsertQuoteRequest stores a quote set and its offers atomically.
func (c *Database) InsertQuoteRequest(ctx context.Context, params InsertQuoteRequestParams) (int64, error) {
	var id int64
	err := c.WithTx(ctx, func(tx DBTX) error {
		var createdAt string
		row := tx.QueryRowContext(ctx, insertQuoteRequest,
			params.RequestID,
			params.DestinationZipcode,
			params.DeclaredValue,
			params.Weight,
			params.Volume,
			params.ItemCount,
		)
		if err := row.Scan(&id, &createdAt); err != nil {
			return fmt.Errorf("insert quote request: %w", err)
		}
		for i, offer := range params.Offers {
			if _, err := tx.ExecContext(ctx, insertQuoteOffer, id, i, offer.Name, offer.Service, offer.Price, offer.Days, offer.QuoteID); err != nil {
				return fmt.Errorf("insert quote offer %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListRecentQuoteRequests returns the newest quote sets first.
func (c *Database) ListRecentQuoteRequests(ctx context.Context, limit int) ([]QuoteRequest, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.conn.QueryContext(ctx, listRecentQuoteRequests, limit)
	if err != nil {
		return nil, fmt.Errorf("list quote requests: %w", err)
	}
	defer rows.Close()

	var out []QuoteRequest
	for rows.Next() {
		var item QuoteRequest
		if err := rows.Scan(
			&item.ID,
			&item.RequestID,
			&item.DestinationZipcode,
			&item.DeclaredValue,
			&item.Weight,
			&item.Volume,
			&item.ItemCount,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i := range out {
		offers, err := c.listQuoteOffers(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Offers = offers
	}
	return out, nil
}

func (c *Database) listQuoteOffers(ctx context.Context, requestID int64) ([]QuoteOffer, error) {
	rows, err := c.conn.QueryContext(ctx, listQuoteOffers, requestID)
	if err != nil {
		return nil, fmt.Errorf("list quote offers: %w", err)
	}
	defer rows.Close()

	offers := make([]QuoteOffer, 0)
	for rows.Next() {
		var offer QuoteOffer
		if err := rows.Scan(&offer.Name, &offer.Service, &offer.Price, &offer.Days, &offer.QuoteID); err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}
