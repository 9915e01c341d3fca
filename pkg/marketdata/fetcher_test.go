package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTickerSymbol(t *testing.T) {
	tests := []struct {
		pair string
		want string
	}{
		{"BTC/USDT", "BTCUSDT"},
		{"eth-usdc", "ETHUSDC"},
		{"SOL_USDT", "SOLUSDT"},
	}
	for _, tt := range tests {
		if got := tickerSymbol(tt.pair); got != tt.want {
			t.Errorf("tickerSymbol(%q) = %q, want %q", tt.pair, got, tt.want)
		}
	}
}

func TestPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sym := r.URL.Query().Get("symbol")
		if sym != "BTCUSDT" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"symbol":"BTCUSDT","price":"50123.45"}`)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL)

	price, err := f.Price(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if price.String() != "50123.45" {
		t.Errorf("price = %s, want 50123.45", price)
	}

	if _, err := f.Price(context.Background(), "XMR/USDT"); err == nil {
		t.Error("expected error for unknown upstream symbol")
	}
}

func TestPrice_BadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"symbol":"BTCUSDT","price":"-1"}`)
	}))
	defer srv.Close()

	if _, err := NewFetcher(srv.URL).Price(context.Background(), "BTC/USDT"); err == nil {
		t.Error("expected error for non-positive price")
	}
}
