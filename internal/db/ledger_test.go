package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestQuoteLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	database, err := New(filepath.Join(t.TempDir(), "ledger-test"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	first, err := database.InsertQuoteRequest(ctx, InsertQuoteRequestParams{
		RequestID:          "req-1",
		DestinationZipcode: "57020050",
		DeclaredValue:      "149.90",
		Weight:             "1.000",
		Volume:             "0.006000",
		ItemCount:          2,
		Offers: []QuoteOffer{
			{Name: "Pajuçara Rodoviário", Service: "RODOVIARIO", Price: "25.00", Days: 5, QuoteID: "q-1"},
			{Name: "Pajuçara Aéreo", Service: "AEREO", Price: "35.00", Days: 3, QuoteID: "q-2"},
		},
	})
	if err != nil {
		t.Fatalf("insert first: %v", err)
	}
	second, err := database.InsertQuoteRequest(ctx, InsertQuoteRequestParams{
		RequestID:          "req-2",
		DestinationZipcode: "01001000",
		DeclaredValue:      "0.00",
		Weight:             "0.000",
		Volume:             "0.000000",
	})
	if err != nil {
		t.Fatalf("insert second: %v", err)
	}
	if second <= first {
		t.Fatalf("expected increasing ids, got %d then %d", first, second)
	}

	records, err := database.ListRecentQuoteRequests(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RequestID != "req-2" || len(records[0].Offers) != 0 {
		t.Fatalf("unexpected newest record %+v", records[0])
	}
	older := records[1]
	if older.DeclaredValue != "149.90" || older.ItemCount != 2 || older.CreatedAt == "" {
		t.Fatalf("unexpected older record %+v", older)
	}
	if len(older.Offers) != 2 || older.Offers[0].QuoteID != "q-1" || older.Offers[1].Price != "35.00" {
		t.Fatalf("unexpected offers %+v", older.Offers)
	}

	stats := database.QueryLatencyStats()
	if len(stats) == 0 {
		t.Fatalf("expected query latency samples")
	}
	seen := map[string]bool{}
	for _, s := range stats {
		seen[s.Name] = true
	}
	for _, name := range []string{"InsertQuoteRequest", "InsertQuoteOffer", "ListRecentQuoteRequests", "ListQuoteOffers"} {
		if !seen[name] {
			t.Fatalf("expected latency samples for %s, got %+v", name, stats)
		}
	}
}

func TestListRecentQuoteRequestsLimit(t *testing.T) {
	ctx := context.Background()
	database, err := New(filepath.Join(t.TempDir(), "ledger-limit"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	for _, id := range []string{"a", "b", "c"} {
		if _, err := database.InsertQuoteRequest(ctx, InsertQuoteRequestParams{RequestID: id, DestinationZipcode: "1", DeclaredValue: "0", Weight: "0", Volume: "0"}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	records, err := database.ListRecentQuoteRequests(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 || records[0].RequestID != "c" || records[1].RequestID != "b" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestQueryName(t *testing.T) {
	if got := queryName(insertQuoteOffer); got != "InsertQuoteOffer" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := queryName("SELECT 1"); got != "unknown" {
		t.Fatalf("unexpected name %q", got)
	}
}
