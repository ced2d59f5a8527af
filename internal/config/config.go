package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	QuoteModeLive  = "live"
	QuoteModeFixed = "fixed"

	DefaultSSWURL       = "https://ssw.inf.br/ws/sswCotacao/index.php"
	DefaultSSWNamespace = "urn:sswinfbr.sswCotacao"
)

type Config struct {
	Environment   string
	Server        ServerConfig
	Webhook       WebhookConfig
	Quoting       QuotingConfig
	SSW           SSWConfig
	FreightAPI    FreightAPIConfig
	Events        EventsConfig
	Ledger        LedgerConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Port     int
	LogLevel string
}

type WebhookConfig struct {
	Secret string
}

type QuotingConfig struct {
	Mode                     string
	OriginZipcode            string
	DefaultRecipientDocument string
	CarrierTimeout           time.Duration
	FixedQuotes              []FixedQuote
}

// FixedQuote is one static offer returned in fixed mode.
type FixedQuote struct {
	Name    string          `validate:"required"`
	Service string          `validate:"required"`
	Price   decimal.Decimal `validate:"-"`
	Days    int             `validate:"gte=0"`
	QuoteID string          `validate:"required"`
}

// ServiceMode is one transport mode a carrier is asked to quote.
type ServiceMode struct {
	Code        string `validate:"required"`
	Name        string `validate:"required"`
	Merchandise string
}

type SSWConfig struct {
	Enabled       bool
	URL           string        `validate:"required,url"`
	Namespace     string        `validate:"required"`
	Domain        string        `validate:"required"`
	Login         string        `validate:"required"`
	Password      string        `validate:"required"`
	PayerCNPJ     string        `validate:"required,numeric"`
	PayerPassword string        `validate:"required"`
	SenderCNPJ    string        `validate:"omitempty,numeric"`
	Merchandise   string        `validate:"required"`
	PaymentTerm   string        `validate:"oneof=C F"`
	Services      []ServiceMode `validate:"min=1,dive"`
	RatePerSecond float64       `validate:"gte=0"`
}

type FreightAPIConfig struct {
	Enabled       bool
	URL           string        `validate:"required,url"`
	Token         string        `validate:"required"`
	Account       string        `validate:"required"`
	Modes         []ServiceMode `validate:"min=1,dive"`
	RatePerSecond float64       `validate:"gte=0"`
}

type EventsConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// LedgerConfig points at the SQLite file recording computed quotes.
// An empty Path disables the ledger.
type LedgerConfig struct {
	Path string
}

type ObservabilityConfig struct {
	Enabled           bool
	OTLPEndpoint      string
	OTLPTraceHeaders  map[string]string
	OTLPMetricHeaders map[string]string
	ServiceName       string
	ServiceVer        string
	SamplingRatio     float64
	MetricsConsole    bool
	MetricInterval    time.Duration
}

func Load() (Config, error) {
	return load(true)
}

// LoadForTool loads config for CLI tools that only need the webhook secret,
// port and ledger path. Carrier sections are not validated.
func LoadForTool() (Config, error) {
	return load(false)
}

func load(validateCarriers bool) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("pajucara_env", "")
	v.SetDefault("app_env", "")
	v.SetDefault("go_env", "")
	v.SetDefault("port", 3000)
	v.SetDefault("log_level", "info")
	v.SetDefault("yampi_secret_token", "")
	v.SetDefault("quote_mode", QuoteModeLive)
	v.SetDefault("origin_zipcode", "")
	v.SetDefault("default_recipient_document", "00000000000")
	v.SetDefault("carrier_timeout", "8s")
	v.SetDefault("fixed_quotes", "")
	v.SetDefault("ssw_enabled", false)
	v.SetDefault("ssw_url", DefaultSSWURL)
	v.SetDefault("ssw_namespace", DefaultSSWNamespace)
	v.SetDefault("ssw_merchandise", "1")
	v.SetDefault("ssw_payment_term", "C")
	v.SetDefault("ssw_services", "RODOVIARIO:Pajuçara Rodoviário")
	v.SetDefault("ssw_rate_per_second", 0)
	v.SetDefault("freight_api_enabled", false)
	v.SetDefault("freight_api_modes", "RODOVIARIO:Pajuçara Rodoviário")
	v.SetDefault("freight_api_rate_per_second", 0)
	v.SetDefault("quote_events_endpoint", "")
	v.SetDefault("quote_events_timeout", "5s")
	v.SetDefault("pajucara_otel_enabled", false)
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_exporter_otlp_headers", "")
	v.SetDefault("otel_exporter_otlp_traces_headers", "")
	v.SetDefault("otel_exporter_otlp_metrics_headers", "")
	v.SetDefault("otel_service_name", "pajucara-middleware")
	v.SetDefault("pajucara_version", "dev")
	v.SetDefault("otel_service_version", "")
	v.SetDefault("pajucara_otel_sampling_ratio", 1.0)
	v.SetDefault("pajucara_otel_metrics_console", false)

	env := resolveEnvironment(v)
	port := v.GetInt("port")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT: %d", port)
	}

	mode := strings.ToLower(strings.TrimSpace(v.GetString("quote_mode")))
	if mode != QuoteModeLive && mode != QuoteModeFixed {
		return Config{}, fmt.Errorf("invalid QUOTE_MODE: %q", mode)
	}

	carrierTimeout := v.GetDuration("carrier_timeout")
	if carrierTimeout <= 0 {
		carrierTimeout = 8 * time.Second
	}
	eventsTimeout := v.GetDuration("quote_events_timeout")
	if eventsTimeout <= 0 {
		eventsTimeout = 5 * time.Second
	}

	fixedQuotes, err := parseFixedQuotes(v.GetString("fixed_quotes"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid FIXED_QUOTES: %w", err)
	}
	sswServices, err := parseServiceModes(v.GetString("ssw_services"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SSW_SERVICES: %w", err)
	}
	freightModes, err := parseServiceModes(v.GetString("freight_api_modes"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid FREIGHT_API_MODES: %w", err)
	}

	samplingRatio := v.GetFloat64("pajucara_otel_sampling_ratio")
	if samplingRatio < 0 {
		samplingRatio = 0
	}
	if samplingRatio > 1 {
		samplingRatio = 1
	}

	serviceName := strings.TrimSpace(v.GetString("otel_service_name"))
	if serviceName == "" {
		serviceName = "pajucara-middleware"
	}

	serviceVersion := strings.TrimSpace(v.GetString("pajucara_version"))
	if serviceVersion == "" {
		serviceVersion = strings.TrimSpace(v.GetString("otel_service_version"))
	}
	if serviceVersion == "" {
		serviceVersion = "dev"
	}

	otlpEndpoint := strings.TrimSpace(v.GetString("otel_exporter_otlp_endpoint"))
	otlpCommonHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_headers"))
	otlpTraceHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_traces_headers"))
	otlpMetricHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_metrics_headers"))
	metricsConsole := v.GetBool("pajucara_otel_metrics_console")
	metricInterval := v.GetDuration("pajucara_otel_metric_interval")
	if metricInterval <= 0 {
		metricInterval = 10 * time.Second
	}
	otelEnabled := v.GetBool("pajucara_otel_enabled") || otlpEndpoint != "" || metricsConsole

	cfg := Config{
		Environment: env,
		Server: ServerConfig{
			Port:     port,
			LogLevel: strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		},
		Webhook: WebhookConfig{
			Secret: strings.TrimSpace(v.GetString("yampi_secret_token")),
		},
		Quoting: QuotingConfig{
			Mode:                     mode,
			OriginZipcode:            digitsOnly(v.GetString("origin_zipcode")),
			DefaultRecipientDocument: digitsOnly(v.GetString("default_recipient_document")),
			CarrierTimeout:           carrierTimeout,
			FixedQuotes:              fixedQuotes,
		},
		SSW: SSWConfig{
			Enabled:       v.GetBool("ssw_enabled"),
			URL:           strings.TrimSpace(v.GetString("ssw_url")),
			Namespace:     strings.TrimSpace(v.GetString("ssw_namespace")),
			Domain:        strings.TrimSpace(v.GetString("ssw_domain")),
			Login:         strings.TrimSpace(v.GetString("ssw_login")),
			Password:      strings.TrimSpace(v.GetString("ssw_password")),
			PayerCNPJ:     digitsOnly(v.GetString("ssw_payer_cnpj")),
			PayerPassword: strings.TrimSpace(v.GetString("ssw_payer_password")),
			SenderCNPJ:    digitsOnly(v.GetString("ssw_sender_cnpj")),
			Merchandise:   strings.TrimSpace(v.GetString("ssw_merchandise")),
			PaymentTerm:   strings.ToUpper(strings.TrimSpace(v.GetString("ssw_payment_term"))),
			Services:      sswServices,
			RatePerSecond: v.GetFloat64("ssw_rate_per_second"),
		},
		FreightAPI: FreightAPIConfig{
			Enabled:       v.GetBool("freight_api_enabled"),
			URL:           strings.TrimSpace(v.GetString("freight_api_url")),
			Token:         strings.TrimSpace(v.GetString("freight_api_token")),
			Account:       strings.TrimSpace(v.GetString("freight_api_account")),
			Modes:         freightModes,
			RatePerSecond: v.GetFloat64("freight_api_rate_per_second"),
		},
		Events: EventsConfig{
			Endpoint: strings.TrimSpace(v.GetString("quote_events_endpoint")),
			Timeout:  eventsTimeout,
		},
		Ledger: LedgerConfig{
			Path: strings.TrimSpace(v.GetString("quote_ledger_path")),
		},
		Observability: ObservabilityConfig{
			Enabled:           otelEnabled,
			OTLPEndpoint:      otlpEndpoint,
			OTLPTraceHeaders:  mergeHeaderMaps(otlpCommonHeaders, otlpTraceHeaders),
			OTLPMetricHeaders: mergeHeaderMaps(otlpCommonHeaders, otlpMetricHeaders),
			ServiceName:       serviceName,
			ServiceVer:        serviceVersion,
			SamplingRatio:     samplingRatio,
			MetricsConsole:    metricsConsole,
			MetricInterval:    metricInterval,
		},
	}

	if cfg.Quoting.DefaultRecipientDocument == "" {
		cfg.Quoting.DefaultRecipientDocument = "00000000000"
	}
	if cfg.Quoting.Mode == QuoteModeFixed && len(cfg.Quoting.FixedQuotes) == 0 {
		cfg.Quoting.FixedQuotes = DefaultFixedQuotes()
	}
	if validateCarriers && cfg.Quoting.Mode == QuoteModeLive {
		if err := cfg.validateCarriers(); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// DefaultFixedQuotes are the static offers served in fixed mode when none are configured.
func DefaultFixedQuotes() []FixedQuote {
	return []FixedQuote{
		{Name: "Pajuçara Rodoviário", Service: "RODOVIARIO", Price: decimal.NewFromInt(25), Days: 5, QuoteID: "pajucara_teste_rodoviario_fixo"},
		{Name: "Pajuçara Aéreo", Service: "AEREO", Price: decimal.NewFromInt(35), Days: 3, QuoteID: "pajucara_teste_aereo_fixo"},
	}
}

func (c Config) validateCarriers() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	var errs []error
	if c.SSW.Enabled {
		if err := validate.Struct(c.SSW); err != nil {
			errs = append(errs, fmt.Errorf("ssw carrier: %w", err))
		}
	}
	if c.FreightAPI.Enabled {
		if err := validate.Struct(c.FreightAPI); err != nil {
			errs = append(errs, fmt.Errorf("freight api carrier: %w", err))
		}
	}
	if (c.SSW.Enabled || c.FreightAPI.Enabled) && c.Quoting.OriginZipcode == "" {
		errs = append(errs, errors.New("ORIGIN_ZIPCODE is required when a live carrier is enabled"))
	}
	return errors.Join(errs...)
}

// parseServiceModes reads "CODE:Name[:merchandise]" entries separated by commas.
func parseServiceModes(raw string) ([]ServiceMode, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []ServiceMode
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 3)
		mode := ServiceMode{Code: strings.ToUpper(strings.TrimSpace(fields[0]))}
		if len(fields) > 1 {
			mode.Name = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			mode.Merchandise = strings.TrimSpace(fields[2])
		}
		if mode.Code == "" {
			return nil, fmt.Errorf("empty service code in %q", part)
		}
		if mode.Name == "" {
			mode.Name = mode.Code
		}
		out = append(out, mode)
	}
	return out, nil
}

// parseFixedQuotes reads "name|service|price|days|quote_id" entries separated by semicolons.
func parseFixedQuotes(raw string) ([]FixedQuote, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []FixedQuote
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, "|")
		if len(fields) != 5 {
			return nil, fmt.Errorf("expected 5 fields in %q", part)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("price in %q: %w", part, err)
		}
		days, err := strconv.Atoi(strings.TrimSpace(fields[3]))
		if err != nil {
			return nil, fmt.Errorf("days in %q: %w", part, err)
		}
		out = append(out, FixedQuote{
			Name:    strings.TrimSpace(fields[0]),
			Service: strings.TrimSpace(fields[1]),
			Price:   price,
			Days:    days,
			QuoteID: strings.TrimSpace(fields[4]),
		})
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	for _, quote := range out {
		if err := validate.Struct(quote); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func parseOTLPHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pair := strings.SplitN(part, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key := strings.TrimSpace(pair[0])
		value := strings.TrimSpace(pair[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mergeHeaderMaps(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func (c Config) IsLocalDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

func (c Config) IsFixedMode() bool {
	return c.Quoting.Mode == QuoteModeFixed
}

func resolveEnvironment(v *viper.Viper) string {
	for _, key := range []string{"pajucara_env", "app_env", "go_env"} {
		value := strings.TrimSpace(v.GetString(key))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
