package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Adams521/everything-gift/internal/config"
	"github.com/Adams521/everything-gift/internal/logging"
	"github.com/Adams521/everything-gift/internal/metrics"
)

const (
	PlatformTaobao = "taobao"

	taobaoEndpoint = "https://eco.taobao.com/router/rest"
	taobaoMethod   = "taobao.tbk.dg.material.optional"
)

// TaobaoSource searches the Taobao affiliate material API
type TaobaoSource struct {
	httpSource
	pid string
}

// NewTaobaoSource creates a Taobao source; without credentials every search returns placeholders
func NewTaobaoSource(cfg config.MarketplaceConfig, opts ...Option) *TaobaoSource {
	return &TaobaoSource{
		httpSource: newHTTPSource(cfg.TaobaoAppKey, cfg.TaobaoAppSecret, taobaoEndpoint, cfg.Timeout, opts),
		pid:        cfg.TaobaoPID,
	}
}

// Platform returns "taobao"
func (s *TaobaoSource) Platform() string { return PlatformTaobao }

type taobaoResponse struct {
	Result *struct {
		ResultList struct {
			MapData []taobaoItem `json:"map_data"`
		} `json:"result_list"`
	} `json:"tbk_dg_material_optional_response"`
	Error *struct {
		Code    int    `json:"code"`
		Msg     string `json:"msg"`
		SubMsg  string `json:"sub_msg"`
		SubCode string `json:"sub_code"`
	} `json:"error_response"`
}

type taobaoItem struct {
	Title        string    `json:"title"`
	ShortTitle   string    `json:"short_title"`
	ZkFinalPrice flexFloat `json:"zk_final_price"`
	ReservePrice flexFloat `json:"reserve_price"`
	PictURL      string    `json:"pict_url"`
	SmallImages  struct {
		String []string `json:"string"`
	} `json:"small_images"`
	ItemURL  string    `json:"item_url"`
	NumIID   flexID    `json:"num_iid"`
	Volume   flexFloat `json:"volume"`
	ShopName string    `json:"shop_title"`
}

// Search queries by keyword, sorted by sales
func (s *TaobaoSource) Search(ctx context.Context, keyword string) ([]RawProduct, error) {
	if !s.configured() {
		metrics.SourceRequests.WithLabelValues(PlatformTaobao, DataSourcePlaceholder).Inc()
		return s.placeholders(keyword), nil
	}

	products, err := s.query(ctx, keyword)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logging.Ctx(ctx).Warn().Err(err).Str("platform", PlatformTaobao).Str("keyword", keyword).
			Msg("Marketplace search failed, using placeholder products")
		metrics.SourceRequests.WithLabelValues(PlatformTaobao, "error").Inc()
		return s.placeholders(keyword), nil
	}

	metrics.SourceRequests.WithLabelValues(PlatformTaobao, DataSourceAPI).Inc()
	return products, nil
}

func (s *TaobaoSource) query(ctx context.Context, keyword string) ([]RawProduct, error) {
	params := map[string]string{
		"method":      taobaoMethod,
		"app_key":     s.appKey,
		"timestamp":   s.timestamp(),
		"format":      "json",
		"v":           "2.0",
		"sign_method": "md5",
		"q":           keyword,
		"page_no":     "1",
		"page_size":   "20",
		"sort":        "total_sales_des",
		"has_coupon":  "true",
	}
	if s.pid != "" {
		if parts := strings.Split(s.pid, "_"); len(parts) == 4 {
			params["adzone_id"] = parts[3]
		}
	}
	params["sign"] = Sign(s.appSecret, params)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

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
		return nil, fmt.Errorf("taobao API returned status %d", resp.StatusCode)
	}

	var parsed taobaoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("taobao API error %d: %s %s", parsed.Error.Code, parsed.Error.Msg, parsed.Error.SubMsg)
	}
	if parsed.Result == nil {
		return nil, fmt.Errorf("taobao API response missing result")
	}

	items := parsed.Result.ResultList.MapData
	products := make([]RawProduct, 0, len(items))
	for _, item := range items {
		products = append(products, item.toRaw())
	}
	return products, nil
}

func (item taobaoItem) toRaw() RawProduct {
	price := float64(item.ZkFinalPrice)
	p := RawProduct{
		Name:              item.Title,
		Price:             price,
		ImageURL:          item.PictURL,
		Platform:          PlatformTaobao,
		PlatformURL:       item.ItemURL,
		PlatformProductID: string(item.NumIID),
		Description:       item.ShortTitle,
		SalesCount:        int64(item.Volume),
		ShopName:          item.ShopName,
		DataSource:        DataSourceAPI,
	}
	if p.Description == "" {
		p.Description = item.Title
	}
	if reserve := float64(item.ReservePrice); reserve > 0 {
		p.OriginalPrice = &reserve
	}
	if item.PictURL != "" {
		p.ImageURLs = append(p.ImageURLs, item.PictURL)
	}
	p.ImageURLs = append(p.ImageURLs, item.SmallImages.String...)
	return p
}

func (s *TaobaoSource) placeholders(keyword string) []RawProduct {
	return placeholders(placeholderTemplate{
		platform: PlatformTaobao,
		name: func(keyword string, i int) string {
			return fmt.Sprintf("%s精选商品%d", keyword, i)
		},
		url: func(itemID uint32) string {
			return "https://item.taobao.com/item.htm?id=" + strconv.FormatUint(uint64(100000000+itemID%900000000), 10)
		},
		description: func(keyword string) string {
			return fmt.Sprintf("优质%s，适合作为礼品赠送，品质保证。", keyword)
		},
	}, keyword)
}

// flexFloat decodes numbers that marketplaces send either as JSON numbers or numeric strings
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// flexID decodes an item identifier sent as a number or a string
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "null" {
		s = ""
	}
	*id = flexID(s)
	return nil
}
