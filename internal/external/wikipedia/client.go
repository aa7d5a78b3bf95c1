package wikipedia

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/httputil"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

const (
	DefaultBaseURL = "https://en.wikipedia.org"

	SP500Page     = "/wiki/List_of_S%26P_500_companies"
	Nasdaq100Page = "/wiki/Nasdaq-100"

	constituentsTableID = "constituents"
)

// Client scrapes index constituents tables from Wikipedia
// ⭐ SSOT: 지수 구성 종목 스크래핑은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Wikipedia client
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

// Source implements contracts.UniverseProvider
func (c *Client) Source() string {
	return "wikipedia"
}

// Symbols returns the tickers listed in both the S&P 500 and the Nasdaq-100
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	var sp500, ndx map[string]string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sp500, err = c.Constituents(gctx, SP500Page)
		return err
	})
	g.Go(func() error {
		var err error
		ndx, err = c.Constituents(gctx, Nasdaq100Page)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	common := make([]string, 0, len(ndx))
	for sym := range ndx {
		if _, ok := sp500[sym]; ok {
			common = append(common, sym)
		}
	}
	sort.Strings(common)

	c.logger.WithFields(map[string]interface{}{
		"sp500":     len(sp500),
		"nasdaq100": len(ndx),
		"common":    len(common),
	}).Info("Fetched index constituents")

	if len(common) == 0 {
		return nil, fmt.Errorf("%w: no common constituents", contracts.ErrDataUnavailable)
	}
	return common, nil
}

// Constituents fetches one page and returns ticker → company name
func (c *Client) Constituents(ctx context.Context, page string) (map[string]string, error) {
	body, err := c.httpClient.GetBytes(ctx, c.baseURL+page)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", contracts.ErrDataUnavailable, page, err)
	}

	out, err := ParseConstituents(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", contracts.ErrDataUnavailable, page, err)
	}
	return out, nil
}

// ParseConstituents reads table#constituents. The ticker column is "Symbol" or "Ticker",
// the name column "Security" or "Company". Dots become dashes (BRK.B → BRK-B).
func ParseConstituents(html []byte) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := doc.Find("table#" + constituentsTableID).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("table #%s not found", constituentsTableID)
	}

	tickerCol, nameCol := -1, -1
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		switch strings.TrimSpace(th.Text()) {
		case "Symbol", "Ticker":
			tickerCol = i
		case "Security", "Company":
			nameCol = i
		}
	})
	if tickerCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("ticker or name column not found")
	}

	out := make(map[string]string)
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() <= tickerCol || cells.Length() <= nameCol {
			return // 헤더 행
		}
		ticker := strings.TrimSpace(cells.Eq(tickerCol).Text())
		ticker = strings.ReplaceAll(ticker, ".", "-")
		name := strings.TrimSpace(cells.Eq(nameCol).Text())
		if ticker == "" || name == "" {
			return
		}
		out[ticker] = name
	})

	if len(out) == 0 {
		return nil, fmt.Errorf("table #%s has no rows", constituentsTableID)
	}
	return out, nil
}
