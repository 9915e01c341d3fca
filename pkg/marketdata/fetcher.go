package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fetcher pulls external reference prices from a ticker endpoint that
// answers GET ?symbol=BTCUSDT with {"symbol":"BTCUSDT","price":"..."}.
// Used by the data-seeding utility only; the settlement path never
// consults external prices.
type Fetcher struct {
	baseURL string
	client  *http.Client
}

func NewFetcher(baseURL string) *Fetcher {
	return &Fetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type tickerResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// tickerSymbol flattens a composite pair to the upstream convention:
// "BTC/USDT" -> "BTCUSDT".
func tickerSymbol(pair string) string {
	r := strings.NewReplacer("/", "", "-", "", "_", "")
	return strings.ToUpper(r.Replace(pair))
}

// Price fetches the current reference price for a trading pair.
func (f *Fetcher) Price(ctx context.Context, pair string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s?symbol=%s", f.baseURL, url.QueryEscape(tickerSymbol(pair)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch ticker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("ticker endpoint returned %s", resp.Status)
	}

	var ticker tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
		return decimal.Zero, fmt.Errorf("decode ticker: %w", err)
	}
	if !ticker.Price.IsPositive() {
		return decimal.Zero, fmt.Errorf("ticker price %s is not positive", ticker.Price)
	}
	return ticker.Price, nil
}
