package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"strings"
	"time"

	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/db"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/webhooks/yampi"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quotesim.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
base_url: http://localhost:3000/
secret: s3cret
zipcode: "57020050"
amount: "149.90"
interval: 30s
items:
  - weight: 0.5
    quantity: 2
    length: 20
    width: 15
    height: 10
`)
	cfg, interval, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if interval != 30*time.Second {
		t.Fatalf("unexpected interval %s", interval)
	}
	if len(cfg.Items) != 1 || cfg.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", cfg.Items)
	}
}

func TestLoadConfigRejectsMissingFields(t *testing.T) {
	if _, _, err := loadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	path := writeConfig(t, "base_url: http://localhost:3000\nsecret: x\nzipcode: \"1\"\n")
	if _, _, err := loadConfig(path); err == nil {
		t.Fatalf("expected error without items")
	}
	path = writeConfig(t, "base_url: http://localhost:3000\nsecret: x\nzipcode: \"1\"\ninterval: -1s\nitems:\n  - weight: 1\n")
	if _, _, err := loadConfig(path); err == nil {
		t.Fatalf("expected error for negative interval")
	}
}

func TestSendQuoteSignsBody(t *testing.T) {
	cfg := config{Secret: "s3cret", Zipcode: "57020050", Amount: "10.50", Document: "12345678909", Items: []item{{Weight: 1, Quantity: 1}}}

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		if err := yampi.NewVerifier(cfg.Secret).Verify(body, r.Header.Get(yampi.SignatureHeader)); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var decoded payload
		if err := json.Unmarshal(body, &decoded); err != nil || decoded.Zipcode != cfg.Zipcode || decoded.Cart.ID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quotes":[{"name":"Pajuçara","service":"RODOVIARIO","price":12.34,"days":3,"quote_id":"q1"}]}`))
	}))
	defer server.Close()
	cfg.BaseURL = server.URL + "/"

	if err := sendQuote(server.Client(), cfg); err != nil {
		t.Fatalf("send quote: %v", err)
	}
	if gotPath != "/cotacao" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestSendQuoteReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Acesso não autorizado."}`))
	}))
	defer server.Close()

	cfg := config{BaseURL: server.URL, Secret: "x", Zipcode: "1", Amount: "0", Items: []item{{Weight: 1}}}
	if err := sendQuote(server.Client(), cfg); err == nil {
		t.Fatalf("expected error on 401")
	}
}

func TestLoadConfigFallsBackToEnvironment(t *testing.T) {
	t.Setenv("YAMPI_SECRET_TOKEN", "env-secret")
	t.Setenv("PORT", "4100")

	path := writeConfig(t, "zipcode: \"57020050\"\nitems:\n  - weight: 1\n")
	cfg, interval, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Secret != "env-secret" || cfg.BaseURL != "http://localhost:4100" {
		t.Fatalf("expected environment fallback, got %+v", cfg)
	}
	if interval != 0 {
		t.Fatalf("expected single run, got interval %s", interval)
	}
}

func TestPrintRecentReadsLedger(t *testing.T) {
	ctx := context.Background()
	ledgerPath := filepath.Join(t.TempDir(), "ledger")
	database, err := db.New(ledgerPath)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	_, err = database.InsertQuoteRequest(ctx, db.InsertQuoteRequestParams{
		RequestID:          "req-7",
		DestinationZipcode: "57020050",
		DeclaredValue:      "10.00",
		Weight:             "1.000",
		Volume:             "0.001000",
		ItemCount:          1,
		Offers:             []db.QuoteOffer{{Name: "Pajuçara Rodoviário", Service: "RODOVIARIO", Price: "25.00", Days: 5, QuoteID: "q-7"}},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := database.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var out bytes.Buffer
	if err := printRecent(ctx, &out, ledgerPath, 5); err != nil {
		t.Fatalf("print recent: %v", err)
	}
	for _, want := range []string{"req-7", "cep=57020050", "RODOVIARIO", "25.00", "q-7"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestPrintRecentRequiresLedgerPath(t *testing.T) {
	t.Setenv("QUOTE_LEDGER_PATH", "")
	if err := printRecent(context.Background(), io.Discard, "", 5); err == nil {
		t.Fatalf("expected error without ledger path")
	}
}
