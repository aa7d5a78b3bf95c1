package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/httputil"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// DefaultBaseURL is the public chart API host
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Client handles communication with the Yahoo Finance chart API
// ⭐ SSOT: Yahoo Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// chartResponse is the v8 chart payload. Nullable series use pointers.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		Currency           string  `json:"currency"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		RegularMarketTime  int64   `json:"regularMarketTime"`
		GMTOffset          int64   `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open  []*float64 `json:"open"`
			High  []*float64 `json:"high"`
			Low   []*float64 `json:"low"`
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (c *Client) fetchChart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	body, err := c.httpClient.GetBytes(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo chart %s: %v", contracts.ErrDataUnavailable, symbol, err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: yahoo decode %s: %v", contracts.ErrDataUnavailable, symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo api error for %s: %s", contracts.ErrDataUnavailable, symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no result for %s", contracts.ErrDataUnavailable, symbol)
	}
	return &resp.Chart.Result[0], nil
}

// DailyHistory returns daily bars in [from, to], oldest first.
// Bar dates are the exchange-local trading day at UTC midnight.
func (c *Client) DailyHistory(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", fmt.Sprintf("%d", from.Unix()))
	params.Set("period2", fmt.Sprintf("%d", to.Unix()))
	params.Set("events", "history")
	params.Set("includeAdjustedClose", "false")

	result, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	bars := parseBars(result)

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
	}).Debug("Fetched daily history")
	return bars, nil
}

func parseBars(result *chartResult) []contracts.PriceBar {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	quote := result.Indicators.Quote[0]

	byDay := make(map[time.Time]contracts.PriceBar, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePrice := at(quote.Close, i)
		if closePrice <= 0 {
			continue // 휴장일/결측
		}
		local := time.Unix(ts+result.Meta.GMTOffset, 0).UTC()
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

		// 같은 날짜가 중복되면 마지막 값 사용
		byDay[day] = contracts.PriceBar{
			Date:  day,
			Open:  at(quote.Open, i),
			High:  at(quote.High, i),
			Low:   at(quote.Low, i),
			Close: closePrice,
		}
	}

	bars := make([]contracts.PriceBar, 0, len(byDay))
	for _, b := range byDay {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars
}

func at(series []*float64, i int) float64 {
	if i >= len(series) || series[i] == nil {
		return 0
	}
	return *series[i]
}

// Quote is the latest regular-market price of a symbol
type Quote struct {
	Symbol    string
	Price     decimal.Decimal
	Currency  string
	Timestamp time.Time
}

// LatestQuote returns the regular market price, falling back to the last close
func (c *Client) LatestQuote(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "5d")

	result, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	price := result.Meta.RegularMarketPrice
	ts := time.Unix(result.Meta.RegularMarketTime, 0).UTC()
	if price <= 0 {
		bars := parseBars(result)
		if len(bars) == 0 {
			return nil, fmt.Errorf("%w: no price for %s", contracts.ErrDataUnavailable, symbol)
		}
		last := bars[len(bars)-1]
		price, ts = last.Close, last.Date
	}

	return &Quote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(price).Round(contracts.FXPrecision),
		Currency:  result.Meta.Currency,
		Timestamp: ts,
	}, nil
}

// LatestPrice implements the latest-price half of contracts.PriceSeriesProvider
func (c *Client) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q, err := c.LatestQuote(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return q.Price.Round(contracts.PricePrecision), nil
}

// FXSymbol returns the chart symbol of a currency pair, e.g. EURUSD=X
func FXSymbol(from, to string) string {
	return strings.ToUpper(from) + strings.ToUpper(to) + "=X"
}

// FXRate returns how many units of `to` buy one unit of `from`
func (c *Client) FXRate(ctx context.Context, from, to string) (*contracts.FXQuote, error) {
	q, err := c.LatestQuote(ctx, FXSymbol(from, to))
	if err != nil {
		return nil, err
	}
	if !q.Price.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive fx rate %s/%s", contracts.ErrDataUnavailable, from, to)
	}
	return &contracts.FXQuote{
		From:      strings.ToUpper(from),
		To:        strings.ToUpper(to),
		Rate:      q.Price.Round(contracts.FXPrecision),
		Timestamp: q.Timestamp,
	}, nil
}
