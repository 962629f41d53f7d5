package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/Adams521/everything-gift/internal/config"
	"github.com/Adams521/everything-gift/internal/logging"
	"github.com/Adams521/everything-gift/internal/metrics"
)

const (
	PlatformJD = "jd"

	jdEndpoint = "https://router.jd.com/api"
	jdMethod   = "jd.union.open.goods.query"
)

// JDSource searches the JD affiliate goods API
type JDSource struct {
	httpSource
	siteID string
}

// NewJDSource creates a JD source; without credentials every search returns placeholders
func NewJDSource(cfg config.MarketplaceConfig, opts ...Option) *JDSource {
	return &JDSource{
		httpSource: newHTTPSource(cfg.JDAppKey, cfg.JDAppSecret, jdEndpoint, cfg.Timeout, opts),
		siteID:     cfg.JDSiteID,
	}
}

// Platform returns "jd"
func (s *JDSource) Platform() string { return PlatformJD }

type jdGoodsRequest struct {
	Keyword   string `json:"keyword"`
	PageIndex int    `json:"pageIndex"`
	PageSize  int    `json:"pageSize"`
	SortName  string `json:"sortName"`
	SiteID    string `json:"siteId,omitempty"`
}

type jdResponse struct {
	Response *struct {
		Code   string          `json:"code"`
		Result json.RawMessage `json:"result"`
	} `json:"jd_union_open_goods_query_response"`
	ErrorResponse *struct {
		Code   string `json:"code"`
		ZhDesc string `json:"zh_desc"`
		EnDesc string `json:"en_desc"`
	} `json:"error_response"`
}

type jdResult struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Data    []jdItem `json:"data"`
}

type jdItem struct {
	SkuID     flexID `json:"skuId"`
	SkuName   string `json:"skuName"`
	PriceInfo struct {
		Price       flexFloat `json:"price"`
		LowestPrice flexFloat `json:"lowestPrice"`
	} `json:"priceInfo"`
	ImageInfo struct {
		ImageList []struct {
			URL string `json:"url"`
		} `json:"imageList"`
	} `json:"imageInfo"`
	MaterialURL        string    `json:"materialUrl"`
	InOrderCount30Days flexFloat `json:"inOrderCount30Days"`
	ShopInfo           struct {
		ShopName string `json:"shopName"`
	} `json:"shopInfo"`
}

// Search queries by keyword, sorted by commission share
func (s *JDSource) Search(ctx context.Context, keyword string) ([]RawProduct, error) {
	if !s.configured() {
		metrics.SourceRequests.WithLabelValues(PlatformJD, DataSourcePlaceholder).Inc()
		return s.placeholders(keyword), nil
	}

	products, err := s.query(ctx, keyword)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logging.Ctx(ctx).Warn().Err(err).Str("platform", PlatformJD).Str("keyword", keyword).
			Msg("Marketplace search failed, using placeholder products")
		metrics.SourceRequests.WithLabelValues(PlatformJD, "error").Inc()
		return s.placeholders(keyword), nil
	}

	metrics.SourceRequests.WithLabelValues(PlatformJD, DataSourceAPI).Inc()
	return products, nil
}

func (s *JDSource) query(ctx context.Context, keyword string) ([]RawProduct, error) {
	dto, err := json.Marshal(jdGoodsRequest{
		Keyword:   keyword,
		PageIndex: 1,
		PageSize:  20,
		SortName:  "wlCommissionShare",
		SiteID:    s.siteID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal goods request: %w", err)
	}

	params := map[string]string{
		"method":      jdMethod,
		"app_key":     s.appKey,
		"timestamp":   s.timestamp(),
		"format":      "json",
		"v":           "1.0",
		"sign_method": "md5",
		"goodsReqDTO": string(dto),
	}
	params["sign"] = Sign(s.appSecret, params)

	reqBody, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jd API returned status %d", resp.StatusCode)
	}

	var parsed jdResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if parsed.ErrorResponse != nil {
		return nil, fmt.Errorf("jd API error %s: %s", parsed.ErrorResponse.Code, parsed.ErrorResponse.ZhDesc)
	}
	if parsed.Response == nil || len(parsed.Response.Result) == 0 {
		return nil, fmt.Errorf("jd API response missing result")
	}

	result, err := decodeJDResult(parsed.Response.Result)
	if err != nil {
		return nil, err
	}
	if result.Code != 0 && result.Code != http.StatusOK {
		return nil, fmt.Errorf("jd API result code %d: %s", result.Code, result.Message)
	}

	products := make([]RawProduct, 0, len(result.Data))
	for _, item := range result.Data {
		products = append(products, item.toRaw())
	}
	return products, nil
}

// decodeJDResult accepts the result either as an object or as a JSON-encoded string
func decodeJDResult(raw json.RawMessage) (*jdResult, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result string: %w", err)
		}
		raw = json.RawMessage(inner)
	}

	var result jdResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

func (item jdItem) toRaw() RawProduct {
	p := RawProduct{
		Name:              item.SkuName,
		Price:             float64(item.PriceInfo.Price),
		Platform:          PlatformJD,
		PlatformURL:       item.MaterialURL,
		PlatformProductID: string(item.SkuID),
		Description:       item.SkuName,
		SalesCount:        int64(item.InOrderCount30Days),
		ShopName:          item.ShopInfo.ShopName,
		DataSource:        DataSourceAPI,
	}
	if lowest := float64(item.PriceInfo.LowestPrice); lowest > 0 {
		p.OriginalPrice = &lowest
	}
	for _, img := range item.ImageInfo.ImageList {
		if img.URL != "" {
			p.ImageURLs = append(p.ImageURLs, img.URL)
		}
	}
	if len(p.ImageURLs) > 0 {
		p.ImageURL = p.ImageURLs[0]
	}
	return p
}

func (s *JDSource) placeholders(keyword string) []RawProduct {
	return placeholders(placeholderTemplate{
		platform: PlatformJD,
		name: func(keyword string, i int) string {
			return fmt.Sprintf("【京东自营】%s精选%d", keyword, i)
		},
		url: func(itemID uint32) string {
			return "https://item.jd.com/" + strconv.FormatUint(uint64(1000000+itemID%9000000), 10) + ".html"
		},
		description: func(keyword string) string {
			return fmt.Sprintf("京东自营%s，正品保证，快速配送。", keyword)
		},
	}, keyword)
}

var (
	_ ProductSource = (*TaobaoSource)(nil)
	_ ProductSource = (*JDSource)(nil)
)
