package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/cache"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/resilience"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/types"
)

const (
	DefaultExchangeRateURL = "https://api.exchangerate-api.com/v4/latest/USD"
	DefaultMetalsURL       = "https://metals-api.com/api/latest"
	DefaultBrentURL        = "https://api.worldbank.org/v2/sources/2/indicators/CRUDE_BRENT/data?format=json&per_page=1"

	marketTimeout   = 5 * time.Second
	marketBodyLimit = 1 << 20
	marketCacheKey  = "market"
)

// Market data source names used as status keys.
const (
	SourceExchangeRates = "exchange_rates"
	SourceMetals        = "commodity_metals"
	SourceBrent         = "commodity_oil"
)

// TrackedCurrencies are the USD exchange rates reported as indicators.
var TrackedCurrencies = []string{"EUR", "CNY", "JPY", "KRW", "TWD"}

// MarketEndpoints are the market data URLs; tests point them at local servers.
type MarketEndpoints struct {
	ExchangeRates string
	Metals        string
	Brent         string
}

// DefaultMarketEndpoints returns the public endpoints.
func DefaultMarketEndpoints() MarketEndpoints {
	return MarketEndpoints{
		ExchangeRates: DefaultExchangeRateURL,
		Metals:        DefaultMetalsURL,
		Brent:         DefaultBrentURL,
	}
}

// MarketSource fetches exchange rates and commodity prices.
type MarketSource struct {
	endpoints MarketEndpoints
	metalsKey string
	pool      *resilience.ConnectionPool
	cache     *cache.Cache[types.MarketIndicators]
	logger    *monitoring.Logger
	now       func() time.Time
}

// NewMarketSource creates a market source. Metals prices are only requested when metalsKey is set;
// a nil cache disables caching.
func NewMarketSource(endpoints MarketEndpoints, metalsKey string, pool *resilience.ConnectionPool,
	c *cache.Cache[types.MarketIndicators], logger *monitoring.Logger) *MarketSource {
	if pool == nil {
		pool = NewPool("market", 4)
	}
	if logger == nil {
		logger = monitoring.NewLogger("info")
	}
	return &MarketSource{
		endpoints: endpoints,
		metalsKey: metalsKey,
		pool:      pool,
		cache:     c,
		logger:    logger,
		now:       time.Now,
	}
}

// FetchIndicators returns the cached indicators or fetches fresh ones. Failed sources are reported in
// Status and contribute no values.
func (m *MarketSource) FetchIndicators(ctx context.Context) types.MarketIndicators {
	if m.cache != nil {
		if v, ok := m.cache.Get(marketCacheKey); ok {
			return v
		}
	}
	return m.Refresh(ctx)
}

// Refresh fetches all sources and updates the cache when anything was retrieved.
func (m *MarketSource) Refresh(ctx context.Context) types.MarketIndicators {
	out := types.MarketIndicators{
		Values:  map[string]float64{},
		Status:  map[string]string{},
		Updated: m.now().UTC(),
	}
	var mu sync.Mutex
	record := func(source string, values map[string]float64, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			out.Status[source] = "failed: " + err.Error()
			return
		}
		for k, v := range values {
			out.Values[k] = v
		}
		out.Status[source] = "active"
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		values, err := m.exchangeRates(gctx)
		record(SourceExchangeRates, values, err)
		return nil
	})
	if m.metalsKey != "" {
		g.Go(func() error {
			values, err := m.metals(gctx)
			record(SourceMetals, values, err)
			return nil
		})
	} else {
		out.Status[SourceMetals] = "not configured"
	}
	g.Go(func() error {
		values, err := m.brent(gctx)
		record(SourceBrent, values, err)
		return nil
	})
	_ = g.Wait()

	if m.cache != nil && !out.Empty() {
		m.cache.Set(marketCacheKey, out)
	}
	return out
}

func (m *MarketSource) getJSON(ctx context.Context, api, endpoint string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, marketTimeout)
	defer cancel()

	start := time.Now()
	status, body, err := getBody(ctx, m.pool, endpoint, map[string]string{"Accept": "application/json"}, marketBodyLimit)
	ok := err == nil && status == http.StatusOK
	m.logger.ExternalAPILogger(api, http.MethodGet, endpoint, status, time.Since(start), ok)
	if err != nil {
		return transportError(api, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("status %d", status)
	}
	return json.Unmarshal(body, out)
}

func (m *MarketSource) exchangeRates(ctx context.Context) (map[string]float64, error) {
	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := m.getJSON(ctx, SourceExchangeRates, m.endpoints.ExchangeRates, &payload); err != nil {
		return nil, err
	}
	values := make(map[string]float64, len(TrackedCurrencies))
	for _, cur := range TrackedCurrencies {
		if rate, ok := payload.Rates[cur]; ok {
			values["USD/"+cur] = rate
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no tracked currencies in response")
	}
	return values, nil
}

func (m *MarketSource) metals(ctx context.Context) (map[string]float64, error) {
	endpoint := m.endpoints.Metals + "?" + url.Values{
		"access_key": {m.metalsKey},
		"base":       {"USD"},
		"symbols":    {"XCU,XAL"},
	}.Encode()

	var payload struct {
		Success bool               `json:"success"`
		Rates   map[string]float64 `json:"rates"`
	}
	if err := m.getJSON(ctx, SourceMetals, endpoint, &payload); err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, fmt.Errorf("metals API reported failure")
	}
	values := map[string]float64{}
	if v, ok := payload.Rates["XCU"]; ok {
		values["Copper (USD/lb)"] = v
	}
	if v, ok := payload.Rates["XAL"]; ok {
		values["Aluminum (USD/lb)"] = v
	}
	return values, nil
}

// brent reads the World Bank response, a two-element array of paging metadata and data points.
func (m *MarketSource) brent(ctx context.Context) (map[string]float64, error) {
	var payload []json.RawMessage
	if err := m.getJSON(ctx, SourceBrent, m.endpoints.Brent, &payload); err != nil {
		return nil, err
	}
	if len(payload) < 2 {
		return nil, fmt.Errorf("unexpected response shape")
	}
	var points []struct {
		Value *float64 `json:"value"`
		Date  string   `json:"date"`
	}
	if err := json.Unmarshal(payload[1], &points); err != nil {
		return nil, err
	}
	if len(points) == 0 || points[0].Value == nil {
		return nil, fmt.Errorf("no data points")
	}
	return map[string]float64{"Brent crude (USD/bbl)": *points[0].Value}, nil
}
