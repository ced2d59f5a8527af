// Command quotesim sends signed Yampi-style shipping quote requests to a
// running middleware and prints the quotes it answers with.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	appconfig "github.com/MercadinhoDaBisa/pajucara-middleware/internal/config"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/db"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/webhooks/yampi"
)

type customer struct {
	Document string `json:"document"`
}

type cart struct {
	ID       string   `json:"id"`
	Customer customer `json:"customer"`
}

type sku struct {
	Weight   float64 `json:"weight"`
	Quantity int     `json:"quantity"`
	Length   float64 `json:"length"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

type payload struct {
	Zipcode string      `json:"zipcode"`
	Amount  json.Number `json:"amount"`
	Cart    cart        `json:"cart"`
	Skus    []sku       `json:"skus"`
}

type quoteResponse struct {
	Quotes []struct {
		Name    string      `json:"name"`
		Service string      `json:"service"`
		Price   json.Number `json:"price"`
		Days    int         `json:"days"`
		QuoteID string      `json:"quote_id"`
	} `json:"quotes"`
}

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	recent := flag.Int("recent", 0, "print the N most recent ledger entries and exit")
	ledgerPath := flag.String("ledger", "", "quote ledger path (defaults to QUOTE_LEDGER_PATH)")
	flag.Parse()

	if *recent > 0 {
		if err := printRecent(context.Background(), os.Stdout, *ledgerPath, *recent); err != nil {
			fmt.Fprintln(os.Stderr, "ledger error:", err)
			os.Exit(1)
		}
		return
	}

	cfg, interval, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	if interval == 0 {
		if err := sendQuote(client, cfg); err != nil {
			fmt.Fprintln(os.Stderr, "quote error:", err)
			os.Exit(1)
		}
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := sendQuote(client, cfg); err != nil {
			fmt.Fprintln(os.Stderr, "quote error:", err)
		}
		<-ticker.C
	}
}

func loadConfig(path string) (config, time.Duration, error) {
	if strings.TrimSpace(path) == "" {
		return config{}, 0, fmt.Errorf("config path is required")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("amount", "0")
	if err := v.ReadInConfig(); err != nil {
		return config{}, 0, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, 0, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Secret = strings.TrimSpace(cfg.Secret)
	if cfg.BaseURL == "" || cfg.Secret == "" {
		env, err := appconfig.LoadForTool()
		if err != nil {
			return config{}, 0, fmt.Errorf("failed to read environment: %w", err)
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = fmt.Sprintf("http://localhost:%d", env.Server.Port)
		}
		if cfg.Secret == "" {
			cfg.Secret = env.Webhook.Secret
		}
	}
	cfg.Zipcode = strings.TrimSpace(cfg.Zipcode)
	cfg.Amount = strings.TrimSpace(cfg.Amount)
	cfg.Document = strings.TrimSpace(cfg.Document)
	cfg.Interval = strings.TrimSpace(cfg.Interval)

	if cfg.BaseURL == "" || cfg.Secret == "" || cfg.Zipcode == "" {
		return config{}, 0, fmt.Errorf("config must include base_url, secret, zipcode")
	}
	if len(cfg.Items) == 0 {
		return config{}, 0, fmt.Errorf("config must include at least one item")
	}

	if cfg.Interval == "" {
		return cfg, 0, nil
	}
	interval, err := time.ParseDuration(cfg.Interval)
	if err != nil {
		return config{}, 0, fmt.Errorf("invalid interval duration: %w", err)
	}
	if interval <= 0 {
		return config{}, 0, fmt.Errorf("interval must be positive")
	}
	return cfg, interval, nil
}

func buildPayload(cfg config) ([]byte, error) {
	skus := make([]sku, 0, len(cfg.Items))
	for _, it := range cfg.Items {
		skus = append(skus, sku(it))
	}
	return json.Marshal(payload{
		Zipcode: cfg.Zipcode,
		Amount:  json.Number(cfg.Amount),
		Cart:    cart{ID: uuid.NewString(), Customer: customer{Document: cfg.Document}},
		Skus:    skus,
	})
}

func sendQuote(client *http.Client, cfg config) error {
	body, err := buildPayload(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	signature, err := yampi.Sign(body, cfg.Secret)
	if err != nil {
		return fmt.Errorf("failed to sign payload: %w", err)
	}

	request, err := http.NewRequestWithContext(context.Background(), http.MethodPost, strings.TrimRight(cfg.BaseURL, "/")+"/cotacao", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	request.Header.Set(yampi.SignatureHeader, signature)
	request.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("quote failed (%s): %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var decoded quoteResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Quote status: %s, %d quote(s) in %s\n", resp.Status, len(decoded.Quotes), time.Since(started).Round(time.Millisecond))
	for _, q := range decoded.Quotes {
		fmt.Printf("  %-30s %-12s R$ %-10s %2d dia(s)  %s\n", q.Name, q.Service, q.Price, q.Days, q.QuoteID)
	}
	return nil
}

func printRecent(ctx context.Context, w io.Writer, ledgerPath string, limit int) error {
	ledgerPath = strings.TrimSpace(ledgerPath)
	if ledgerPath == "" {
		env, err := appconfig.LoadForTool()
		if err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		ledgerPath = env.Ledger.Path
	}
	if ledgerPath == "" {
		return fmt.Errorf("ledger path is required (-ledger or QUOTE_LEDGER_PATH)")
	}

	database, err := db.New(ledgerPath)
	if err != nil {
		return err
	}
	defer database.Close()

	records, err := database.ListRecentQuoteRequests(ctx, limit)
	if err != nil {
		return err
	}
	for _, record := range records {
		fmt.Fprintf(w, "%s %s cep=%s valor=%s peso=%s itens=%d quotes=%d\n",
			record.CreatedAt, record.RequestID, record.DestinationZipcode, record.DeclaredValue, record.Weight, record.ItemCount, len(record.Offers))
		for _, offer := range record.Offers {
			fmt.Fprintf(w, "  %-30s %-12s R$ %-10s %2d dia(s)  %s\n", offer.Name, offer.Service, offer.Price, offer.Days, offer.QuoteID)
		}
	}
	return nil
}
