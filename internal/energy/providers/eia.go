package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/energy-data-ingestion/internal/energy"
)

const (
	// DefaultEIABaseURL is the root of the EIA v2 API.
	DefaultEIABaseURL = "https://api.eia.gov/v2"

	// DefaultPageLength is the largest page the EIA API serves.
	DefaultPageLength = 5000

	maxBodyBytes = 16 << 20
)

var (
	errMissingAPIKey = errors.New("eia api key is not configured")
	errMalformedJSON = errors.New("malformed json body")
)

// EIAConfig configures an EIAClient.
type EIAConfig struct {
	APIKey        string
	BaseURL       string
	PageLength    int
	RatePerSecond float64
}

// EIAClient implements energy.SourceClient for the U.S. Energy Information Administration API.
type EIAClient struct {
	apiKey     string
	baseURL    string
	pageLength int
	httpCfg    HTTPClientConfig

	// breakers are keyed by state code.
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

var _ energy.SourceClient = (*EIAClient)(nil)

func NewEIAClient(client *http.Client, cfg EIAConfig) *EIAClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultEIABaseURL
	}
	pageLength := cfg.PageLength
	if pageLength <= 0 {
		pageLength = DefaultPageLength
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &EIAClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		pageLength: pageLength,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
			Limiter: limiter,
		},
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (p *EIAClient) breaker(stateCode string) *gobreaker.CircuitBreaker {
	p.mu.Lock()
	defer p.mu.Unlock()

	cb, ok := p.breakers[stateCode]
	if !ok {
		cb = newBreaker("eia-" + stateCode)
		p.breakers[stateCode] = cb
	}
	return cb
}

// Fetch requests one page of ct for stateCode over w, newest period first.
func (p *EIAClient) Fetch(ctx context.Context, ct energy.CommodityType, stateCode string, w energy.Window) (energy.RawPayload, error) {
	fail := func(err error) (energy.RawPayload, error) {
		return energy.RawPayload{}, &energy.TransportFailure{StateCode: stateCode, Type: ct.Name, Cause: err}
	}

	if p.apiKey == "" {
		return fail(errMissingAPIKey)
	}

	endpoint := fmt.Sprintf("%s/%s/", p.baseURL, strings.Trim(ct.Route, "/"))
	query := p.query(ct, stateCode, w)

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, endpoint+"?"+query.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.breaker(stateCode), buildRequest)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fail(fmt.Errorf("reading body: %w", err))
	}
	if !json.Valid(body) {
		return fail(errMalformedJSON)
	}

	return energy.RawPayload{Body: body}, nil
}

// query builds the EIA v2 parameter set for one state and window.
func (p *EIAClient) query(ct energy.CommodityType, stateCode string, w energy.Window) url.Values {
	values := url.Values{}
	values.Set("api_key", p.apiKey)
	values.Set("frequency", string(ct.Frequency))
	if ct.DataColumn != "" {
		values.Set("data[0]", ct.DataColumn)
	}

	if ct.Facets != nil {
		facets := ct.Facets(stateCode)
		keys := make([]string, 0, len(facets))
		for k := range facets {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			values.Add(fmt.Sprintf("facets[%s][]", k), facets[k])
		}
	}

	values.Set("start", w.StartParam())
	if end := w.EndParam(); end != "" {
		values.Set("end", end)
	}

	values.Set("sort[0][column]", "period")
	values.Set("sort[0][direction]", "desc")
	values.Set("offset", "0")
	values.Set("length", strconv.Itoa(p.pageLength))
	return values
}
