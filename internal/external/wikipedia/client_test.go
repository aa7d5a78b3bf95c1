package wikipedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/httputil"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

const sp500HTML = `<html><body>
<table class="wikitable"><tr><th>Other</th></tr><tr><td>IGNORED</td></tr></table>
<table id="constituents" class="wikitable sortable">
<tbody>
<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th></tr>
<tr><td><a href="#">AAPL</a></td><td>Apple Inc.</td><td>IT</td></tr>
<tr><td>MSFT</td><td>Microsoft</td><td>IT</td></tr>
<tr><td>BRK.B</td><td>Berkshire Hathaway</td><td>Financials</td></tr>
<tr><td>NVDA</td><td>Nvidia</td><td>IT</td></tr>
</tbody>
</table></body></html>`

const ndxHTML = `<html><body>
<table id="constituents" class="wikitable sortable">
<tr><th>Company</th><th>Ticker</th><th>GICS Sector</th></tr>
<tr><td>Apple Inc.</td><td>AAPL</td><td>IT</td></tr>
<tr><td>Microsoft</td><td>MSFT</td><td>IT</td></tr>
<tr><td>Nvidia</td><td>NVDA</td><td>IT</td></tr>
<tr><td>PDD Holdings</td><td>PDD</td><td>Consumer</td></tr>
</table></body></html>`

func TestParseConstituents(t *testing.T) {
	got, err := ParseConstituents([]byte(sp500HTML))
	require.NoError(t, err)

	assert.Len(t, got, 4)
	assert.Equal(t, "Apple Inc.", got["AAPL"])
	assert.Equal(t, "Berkshire Hathaway", got["BRK-B"])
	assert.NotContains(t, got, "IGNORED")

	got, err = ParseConstituents([]byte(ndxHTML))
	require.NoError(t, err)
	assert.Equal(t, "PDD Holdings", got["PDD"])
}

func TestParseConstituents_Errors(t *testing.T) {
	_, err := ParseConstituents([]byte(`<table class="wikitable"><tr><th>Symbol</th></tr></table>`))
	assert.Error(t, err)

	_, err = ParseConstituents([]byte(`<table id="constituents"><tr><th>Foo</th><th>Bar</th></tr></table>`))
	assert.Error(t, err)
}

func TestSymbols_Intersection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wiki/List_of_S&P_500_companies":
			_, _ = w.Write([]byte(sp500HTML))
		case "/wiki/Nasdaq-100":
			_, _ = w.Write([]byte(ndxHTML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	log := logger.Nop()
	c := NewClient(httputil.New(log).DisableRetry(), srv.URL, log)

	symbols, err := c.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, symbols)
	assert.Equal(t, "wikipedia", c.Source())
}

func TestSymbols_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusForbidden)
	}))
	defer srv.Close()

	log := logger.Nop()
	c := NewClient(httputil.New(log).DisableRetry(), srv.URL, log)

	_, err := c.Symbols(context.Background())
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}
