package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"MarketDigest/internal/model"
)

const (
	quoteFields  = "f43,f44,f45,f46,f47,f48,f50,f51,f52,f55,f57,f58,f60,f170,f171"
	klineFields2 = "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61"
	flowFields2  = "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61,f62,f63,f64,f65"
	sectorFields = "f12,f14,f3,f184,rankType"
	sectorFilter = "m:90 t:2 f:!50"
	sectorToken  = "b2884a393a59ad64002292a3e90d46a5"
)

// EastmoneyGateway implements Gateway against the Eastmoney push2 REST API.
type EastmoneyGateway struct {
	QuoteURL   string
	HistoryURL string
	UserAgent  string
	Referer    string
	Client     *http.Client
	limiter    *rate.Limiter
}

// EastmoneyOption configures the gateway.
type EastmoneyOption func(*EastmoneyGateway)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) EastmoneyOption {
	return func(g *EastmoneyGateway) { g.Client = c }
}

// WithHeaders sets the User-Agent and Referer sent with every request.
func WithHeaders(userAgent, referer string) EastmoneyOption {
	return func(g *EastmoneyGateway) {
		g.UserAgent = userAgent
		g.Referer = referer
	}
}

// WithRateLimit caps outbound requests per second. Zero disables limiting.
func WithRateLimit(perSecond int) EastmoneyOption {
	return func(g *EastmoneyGateway) {
		if perSecond <= 0 {
			g.limiter = nil
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	}
}

// NewEastmoneyGateway creates a gateway with optional proxy support.
func NewEastmoneyGateway(quoteURL, historyURL, proxyURL string, timeout time.Duration, opts ...EastmoneyOption) *EastmoneyGateway {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	g := &EastmoneyGateway{
		QuoteURL:   strings.TrimRight(quoteURL, "/"),
		HistoryURL: strings.TrimRight(historyURL, "/"),
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *EastmoneyGateway) Name() string { return "eastmoney" }

// flexFloat accepts both numbers and the "-" placeholder the API uses for
// missing values.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexFloat(parseField(s))
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

func (g *EastmoneyGateway) FetchQuote(ctx context.Context, secID string) (*model.Quote, error) {
	params := url.Values{}
	params.Set("secid", secID)
	params.Set("fields", quoteFields)

	var result struct {
		Data *struct {
			F43  flexFloat `json:"f43"`
			F44  flexFloat `json:"f44"`
			F45  flexFloat `json:"f45"`
			F46  flexFloat `json:"f46"`
			F47  flexFloat `json:"f47"`
			F48  flexFloat `json:"f48"`
			F58  string    `json:"f58"`
			F60  flexFloat `json:"f60"`
			F170 flexFloat `json:"f170"`
			F171 flexFloat `json:"f171"`
		} `json:"data"`
	}
	body, err := g.get(ctx, g.QuoteURL+"/api/qt/stock/get", params)
	if err != nil {
		return nil, fmt.Errorf("fetch quote %s: %w", secID, err)
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode quote %s: %w", secID, err)
	}
	if result.Data == nil {
		return nil, fmt.Errorf("fetch quote %s: %w", secID, ErrEmptyResponse)
	}
	d := result.Data
	return &model.Quote{
		SecID:         secID,
		Name:          d.F58,
		Price:         model.FromMinor(float64(d.F43)),
		ChangePercent: model.FromMinor(float64(d.F170)),
		ChangeAmount:  model.FromMinor(float64(d.F171)),
		Open:          model.FromMinor(float64(d.F46)),
		High:          model.FromMinor(float64(d.F44)),
		Low:           model.FromMinor(float64(d.F45)),
		PrevClose:     model.FromMinor(float64(d.F60)),
		Volume:        float64(d.F47),
		Turnover:      float64(d.F48),
	}, nil
}

func (g *EastmoneyGateway) FetchHistory(ctx context.Context, secID string, days int) ([]model.HistoricalBar, error) {
	params := url.Values{}
	params.Set("secid", secID)
	params.Set("fields1", "f1,f2,f3,f4,f5,f6")
	params.Set("fields2", klineFields2)
	params.Set("klt", "101")
	params.Set("fqt", "1")
	params.Set("end", "20500101")
	params.Set("lmt", strconv.Itoa(days+5))

	lines, err := g.fetchKlines(ctx, g.HistoryURL+"/api/qt/stock/kline/get", params)
	if err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", secID, err)
	}
	bars := make([]model.HistoricalBar, 0, len(lines))
	for _, line := range lines {
		bar, err := parseKline(line)
		if err != nil {
			return nil, fmt.Errorf("parse kline %q: %w", line, err)
		}
		bars = append(bars, bar)
	}
	return lastN(bars, days), nil
}

func (g *EastmoneyGateway) FetchMoneyFlow(ctx context.Context, secID string, days int) ([]model.MoneyFlowRecord, error) {
	params := url.Values{}
	params.Set("secid", secID)
	params.Set("fields1", "f1,f2,f3,f7")
	params.Set("fields2", flowFields2)
	params.Set("klt", "101")
	params.Set("lmt", strconv.Itoa(days+5))

	lines, err := g.fetchKlines(ctx, g.HistoryURL+"/api/qt/stock/fflow/daykline/get", params)
	if err != nil {
		return nil, fmt.Errorf("fetch money flow %s: %w", secID, err)
	}
	records := make([]model.MoneyFlowRecord, 0, len(lines))
	for _, line := range lines {
		rec, err := parseFlowLine(line)
		if err != nil {
			return nil, fmt.Errorf("parse flow %q: %w", line, err)
		}
		records = append(records, rec)
	}
	return lastN(records, days), nil
}

func (g *EastmoneyGateway) FetchTopSectors(ctx context.Context, k int) ([]model.SectorSnapshot, error) {
	params := url.Values{}
	params.Set("cb", "jQuery112307879834664846898_1630941013041")
	params.Set("fid", "f3")
	params.Set("po", "1")
	params.Set("pz", "20")
	params.Set("pn", "1")
	params.Set("np", "1")
	params.Set("fltt", "2")
	params.Set("invt", "2")
	params.Set("ut", sectorToken)
	params.Set("fs", sectorFilter)
	params.Set("fields", sectorFields)

	body, err := g.get(ctx, g.QuoteURL+"/api/qt/clist/get", params)
	if err != nil {
		return nil, fmt.Errorf("fetch sectors: %w", err)
	}
	payload, err := stripJSONP(body)
	if err != nil {
		return nil, fmt.Errorf("fetch sectors: %w", err)
	}

	var result struct {
		Data *struct {
			Diff []struct {
				F12      string    `json:"f12"`
				F14      string    `json:"f14"`
				F3       flexFloat `json:"f3"`
				F184     flexFloat `json:"f184"`
				RankType int       `json:"rankType"`
			} `json:"diff"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode sectors: %w", err)
	}
	if result.Data == nil || len(result.Data.Diff) == 0 {
		return nil, fmt.Errorf("fetch sectors: %w", ErrEmptyResponse)
	}

	sectors := make([]model.SectorSnapshot, 0, len(result.Data.Diff))
	for _, item := range result.Data.Diff {
		sectors = append(sectors, model.SectorSnapshot{
			Code:          item.F12,
			Name:          item.F14,
			ChangePercent: float64(item.F3),
			NetFlow:       float64(item.F184),
			RankType:      item.RankType,
		})
	}
	if k > 0 && len(sectors) > k {
		sectors = sectors[:k]
	}
	return sectors, nil
}

func (g *EastmoneyGateway) fetchKlines(ctx context.Context, endpoint string, params url.Values) ([]string, error) {
	body, err := g.get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	var result struct {
		Data *struct {
			Klines []string `json:"klines"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	if result.Data == nil || len(result.Data.Klines) == 0 {
		return nil, ErrEmptyResponse
	}
	return result.Data.Klines, nil
}

func (g *EastmoneyGateway) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}
	if g.Referer != "" {
		req.Header.Set("Referer", g.Referer)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d, body: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

// parseKline decodes "date,open,close,high,low,volume,turnover,amplitude,chg%,chg,turnoverRate".
func parseKline(line string) (model.HistoricalBar, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 11 {
		return model.HistoricalBar{}, fmt.Errorf("expected 11 fields, got %d", len(parts))
	}
	date, err := time.ParseInLocation(model.DateLayout, parts[0], time.Local)
	if err != nil {
		return model.HistoricalBar{}, err
	}
	return model.HistoricalBar{
		Date:          date,
		Open:          parseField(parts[1]),
		Close:         parseField(parts[2]),
		High:          parseField(parts[3]),
		Low:           parseField(parts[4]),
		Volume:        parseField(parts[5]),
		Turnover:      parseField(parts[6]),
		Amplitude:     parseField(parts[7]),
		ChangePercent: parseField(parts[8]),
		ChangeAmount:  parseField(parts[9]),
		TurnoverRate:  parseField(parts[10]),
	}, nil
}

// parseFlowLine decodes "date,main,small,medium,large,superLarge,...".
func parseFlowLine(line string) (model.MoneyFlowRecord, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 6 {
		return model.MoneyFlowRecord{}, fmt.Errorf("expected at least 6 fields, got %d", len(parts))
	}
	date, err := time.ParseInLocation(model.DateLayout, parts[0], time.Local)
	if err != nil {
		return model.MoneyFlowRecord{}, err
	}
	return model.MoneyFlowRecord{
		Date:       date,
		MainNet:    parseField(parts[1]),
		SmallNet:   parseField(parts[2]),
		MediumNet:  parseField(parts[3]),
		LargeNet:   parseField(parts[4]),
		SuperLarge: parseField(parts[5]),
	}, nil
}

// parseField treats "-" and unparsable or non-finite values as zero.
func parseField(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func stripJSONP(body []byte) ([]byte, error) {
	start := bytes.IndexByte(body, '{')
	end := bytes.LastIndexByte(body, '}')
	if start < 0 || end < start {
		return nil, ErrEmptyResponse
	}
	return body[start : end+1], nil
}

func lastN[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[len(items)-n:]
	}
	return items
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
