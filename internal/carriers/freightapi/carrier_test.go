package freightapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/domain"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/carriers"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/config"
)

func testConfig(url string) config.FreightAPIConfig {
	return config.FreightAPIConfig{
		Enabled: true,
		URL:     url,
		Token:   "token-123",
		Account: "pajucara",
		Modes: []config.ServiceMode{
			{Code: "RODOVIARIO", Name: "Pajuçara Rodoviário"},
			{Code: "AEREO", Name: "Pajuçara Aéreo"},
		},
	}
}

func testShipment() domain.Shipment {
	return domain.Shipment{
		DestinationZipcode: "01310100",
		RecipientDocument:  "12345678909",
		DeclaredValue:      decimal.RequireFromString("149.9"),
		Totals: domain.ShipmentTotals{
			Weight: decimal.RequireFromString("1.5"),
			Volume: decimal.RequireFromString("0.0061234567"),
			Count:  2,
			FirstItem: domain.Dimensions{
				Length: decimal.NewFromInt(20),
				Width:  decimal.NewFromInt(15),
				Height: decimal.NewFromInt(10),
			},
		},
	}
}

func TestCarrierSendsBearerAndModes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "57000000", body["origin_zipcode"])
		assert.Equal(t, "01310100", body["destination_zipcode"])
		assert.Equal(t, 149.9, body["declared_value"])
		requests := body["requests"].([]any)
		require.Len(t, requests, 2)
		first := requests[0].(map[string]any)
		assert.Equal(t, "RODOVIARIO", first["mode"])
		assert.Equal(t, 1.5, first["weight"])
		assert.Equal(t, 0.006123, first["volume"])
		assert.Equal(t, float64(2), first["volumes"])
		assert.Contains(t, string(raw), `"declared_value":149.90`)

		_, _ = io.WriteString(w, `{"success":true,"message":"ok","results":[
			{"mode":"RODOVIARIO","service":"RODOVIARIO","name":"Pajuçara Rodoviário","price":25.5,"days":5,"quote_id":"q-1","error_code":0},
			{"mode":"AEREO","service":"AEREO","price":"35,00","days":3,"error_code":0},
			{"mode":"EXPRESSO","price":0,"days":1,"error_code":0},
			{"mode":"MARITIMO","price":99,"days":20,"error_code":12,"error_message":"indisponivel"}
		]}`)
	}))
	defer srv.Close()

	carrier := New(testConfig(srv.URL), "57000000", carriers.Options{HTTPClient: srv.Client()})
	assert.Equal(t, Name, carrier.Name())

	quotes, err := carrier.Quote(context.Background(), testShipment())
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, "Pajuçara Rodoviário", quotes[0].Name)
	assert.True(t, quotes[0].Price.Equal(decimal.RequireFromString("25.5")))
	assert.Equal(t, "q-1", quotes[0].QuoteID)

	assert.Equal(t, "Pajuçara Aéreo", quotes[1].Name)
	assert.Equal(t, "AEREO", quotes[1].Service)
	assert.True(t, quotes[1].Price.Equal(decimal.NewFromInt(35)))
	assert.Equal(t, 3, quotes[1].Days)
	assert.Equal(t, "freightapi_aereo", quotes[1].QuoteID)
}

func TestCarrierFailures(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		want   error
	}{
		"unauthorized": {status: http.StatusUnauthorized, body: `{"message":"bad token"}`, want: carriers.ErrUpstreamStatus},
		"not json":     {status: http.StatusOK, body: `<html>`, want: carriers.ErrMalformedResponse},
		"unsuccessful": {status: http.StatusOK, body: `{"success":false,"message":"conta bloqueada"}`, want: carriers.ErrRejected},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := New(testConfig(srv.URL), "57000000", carriers.Options{HTTPClient: srv.Client()}).Quote(context.Background(), testShipment())
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseResponseAllErroredResultsYieldNothing(t *testing.T) {
	codec := NewCodec(testConfig("http://example.invalid"), "57000000")
	quotes, err := codec.ParseResponse(http.StatusOK, []byte(`{"success":true,"results":[{"mode":"AEREO","price":10,"error_code":3}]}`))
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestParseResponseNonPositivePricesYieldNothing(t *testing.T) {
	codec := NewCodec(testConfig("http://example.invalid"), "57000000")
	cases := map[string]string{
		"zero number":   `{"mode":"RODOVIARIO","price":0,"days":5,"error_code":0}`,
		"zero text":     `{"mode":"RODOVIARIO","price":"0,00","days":5,"error_code":0}`,
		"negative":      `{"mode":"RODOVIARIO","price":-12.5,"days":5,"error_code":0}`,
		"negative text": `{"mode":"RODOVIARIO","price":"-12,50","days":5,"error_code":0}`,
		"missing price": `{"mode":"RODOVIARIO","days":5,"error_code":0}`,
		"null price":    `{"mode":"RODOVIARIO","price":null,"days":5,"error_code":0}`,
	}
	for name, result := range cases {
		t.Run(name, func(t *testing.T) {
			quotes, err := codec.ParseResponse(http.StatusOK, []byte(`{"success":true,"results":[`+result+`]}`))
			require.NoError(t, err)
			assert.Empty(t, quotes)
		})
	}
}
