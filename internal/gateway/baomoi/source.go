package baomoi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"stockpilot/internal/market"
)

const (
	entryInfoPath = "/api/v1/slave/widget/stock/entry/get/info"
	clientVersion = "0.7.57"
	requestSig    = "6061945aa5a022ca504501ec88a286f3d6bfeb6aac7a30a4596f7391f5ecdd19"
)

// exchangeMap 标记各股票所属交易所 (1 = HOSE, 2 = HNX, 3 = UPCOM)。
var exchangeMap = map[string]string{
	"FPT": "1",
	"HPG": "1",
	"KBC": "1",
	"VNM": "1",
	"VIC": "1",
	"MWG": "1",
}

// Source 通过 BaoMoi 实时行情接口取得报价。
type Source struct {
	cfg    Config
	client *http.Client
}

func NewSource(cfg Config) *Source {
	cfg = cfg.withDefaults()
	return &Source{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}
}

func (s *Source) Name() string { return "baomoi" }

func (s *Source) Fetch(ctx context.Context, symbol string) (market.Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	exchange, ok := exchangeMap[symbol]
	if !ok {
		return market.Snapshot{}, fmt.Errorf("baomoi: symbol %s not mapped to an exchange: %w", symbol, market.ErrUnavailable)
	}

	params := url.Values{}
	params.Set("id", exchange+"|"+symbol)
	params.Set("dayAgo", "1")
	params.Set("ctime", strconv.FormatInt(time.Now().Unix(), 10))
	params.Set("version", clientVersion)
	params.Set("sig", requestSig)
	params.Set("apiKey", s.cfg.APIKey)

	endpoint := s.cfg.RESTBaseURL + entryInfoPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return market.Snapshot{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("baomoi: request failed: %w: %v", market.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return market.Snapshot{}, fmt.Errorf("baomoi: unexpected status %s: %w", resp.Status, market.ErrUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("baomoi: read body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return market.Snapshot{}, fmt.Errorf("baomoi: invalid json payload: %w", market.ErrUnavailable)
	}

	root := gjson.ParseBytes(body)
	if root.Get("err").Int() != 0 {
		return market.Snapshot{}, fmt.Errorf("baomoi: api error %q: %w", root.Get("msg").String(), market.ErrUnavailable)
	}
	data := root.Get("data")
	if !data.Exists() {
		return market.Snapshot{}, fmt.Errorf("baomoi: empty data for %s: %w", symbol, market.ErrUnavailable)
	}

	price := data.Get("price").Float()
	if price <= 0 {
		return market.Snapshot{}, fmt.Errorf("baomoi: non-positive price for %s: %w", symbol, market.ErrUnavailable)
	}
	high := data.Get("priceHigh").Float()
	if high <= 0 {
		high = price
	}
	low := data.Get("priceLow").Float()
	if low <= 0 {
		low = price
	}

	return market.Snapshot{
		Symbol:    symbol,
		Price:     price,
		ChangePct: data.Get("change").Float(),
		Volume:    data.Get("volume").Float(),
		High:      high,
		Low:       low,
		At:        time.Now(),
	}, nil
}
