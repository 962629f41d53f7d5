package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adams521/everything-gift/internal/config"
)

var fixedClock = func() time.Time { return time.UnixMilli(1700000000000) }

func TestSign(t *testing.T) {
	params := map[string]string{
		"method": "taobao.tbk.dg.material.optional",
		"b":      "2",
		"a":      "1",
		"sign":   "ignored",
	}

	got := Sign("secret", params)
	assert.Len(t, got, 32)
	assert.Equal(t, got, Sign("secret", map[string]string{"a": "1", "b": "2", "method": "taobao.tbk.dg.material.optional"}),
		"sign key is excluded and order does not matter")
	assert.NotEqual(t, got, Sign("other", params))

	// md5("s" + "a1" + "s") = md5("sa1s")
	assert.Equal(t, "585B98956D9738EDEC5CBD8443F7A228", Sign("s", map[string]string{"a": "1"}))
	assert.Regexp(t, `^[0-9A-F]{32}$`, got)
}

func TestPlaceholders(t *testing.T) {
	taobao := NewTaobaoSource(config.MarketplaceConfig{})
	jd := NewJDSource(config.MarketplaceConfig{})

	t.Run("Taobao", func(t *testing.T) {
		products, err := taobao.Search(context.Background(), "香薰")
		require.NoError(t, err)
		require.Len(t, products, PlaceholderCount)

		assert.Equal(t, "香薰精选商品1", products[0].Name)
		assert.Equal(t, "优质香薰，适合作为礼品赠送，品质保证。", products[0].Description)
		for _, p := range products {
			assert.Equal(t, PlatformTaobao, p.Platform)
			assert.Equal(t, DataSourcePlaceholder, p.DataSource)
			assert.GreaterOrEqual(t, p.Price, 50.0)
			assert.LessOrEqual(t, p.Price, 2000.0)
			assert.Contains(t, p.PlatformURL, "https://item.taobao.com/item.htm?id=")
		}
	})

	t.Run("JD", func(t *testing.T) {
		products, err := jd.Search(context.Background(), "耳机")
		require.NoError(t, err)
		require.Len(t, products, PlaceholderCount)
		assert.Equal(t, "【京东自营】耳机精选10", products[9].Name)
		assert.Contains(t, products[0].PlatformURL, "https://item.jd.com/")
	})

	t.Run("Deterministic", func(t *testing.T) {
		first, _ := taobao.Search(context.Background(), "香薰")
		second, _ := taobao.Search(context.Background(), "香薰")
		assert.Equal(t, first, second)

		other, _ := taobao.Search(context.Background(), "手表")
		assert.NotEqual(t, first[0].Price, other[0].Price)
	})
}

func TestTaobaoSource_Search(t *testing.T) {
	var query map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		query = map[string]string{}
		for k, v := range r.URL.Query() {
			query[k] = v[0]
		}
		_, _ = w.Write([]byte(`{
			"tbk_dg_material_optional_response": {
				"result_list": {"map_data": [{
					"title": "手工香薰蜡烛礼盒",
					"short_title": "香薰礼盒",
					"zk_final_price": "89.90",
					"reserve_price": "129.00",
					"pict_url": "https://img.example/1.jpg",
					"small_images": {"string": ["https://img.example/2.jpg"]},
					"item_url": "https://item.taobao.com/item.htm?id=42",
					"num_iid": 42,
					"volume": 1200,
					"shop_title": "香氛小铺"
				}]}
			}
		}`))
	}))
	defer server.Close()

	src := NewTaobaoSource(config.MarketplaceConfig{
		TaobaoAppKey:    "key",
		TaobaoAppSecret: "secret",
		TaobaoPID:       "mm_1_2_3",
	}, WithEndpoint(server.URL), WithClock(fixedClock))

	products, err := src.Search(context.Background(), "香薰")
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "手工香薰蜡烛礼盒", p.Name)
	assert.Equal(t, 89.9, p.Price)
	require.NotNil(t, p.OriginalPrice)
	assert.Equal(t, 129.0, *p.OriginalPrice)
	assert.Equal(t, "42", p.PlatformProductID)
	assert.Equal(t, int64(1200), p.SalesCount)
	assert.Equal(t, []string{"https://img.example/1.jpg", "https://img.example/2.jpg"}, p.ImageURLs)
	assert.Equal(t, DataSourceAPI, p.DataSource)

	assert.Equal(t, taobaoMethod, query["method"])
	assert.Equal(t, "香薰", query["q"])
	assert.Equal(t, "1700000000000", query["timestamp"])
	assert.Equal(t, "3", query["adzone_id"])
	sign := query["sign"]
	delete(query, "sign")
	assert.Equal(t, Sign("secret", query), sign)
}

func TestTaobaoSource_ErrorFallsBackToPlaceholders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error_response": {"code": 27, "msg": "Invalid session"}}`))
	}))
	defer server.Close()

	src := NewTaobaoSource(config.MarketplaceConfig{TaobaoAppKey: "key", TaobaoAppSecret: "secret"},
		WithEndpoint(server.URL))

	products, err := src.Search(context.Background(), "香薰")
	require.NoError(t, err)
	require.Len(t, products, PlaceholderCount)
	assert.Equal(t, DataSourcePlaceholder, products[0].DataSource)
}

func TestJDSource_Search(t *testing.T) {
	var body map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		// JD nests the result as a JSON-encoded string
		_, _ = w.Write([]byte(`{"jd_union_open_goods_query_response": {"code": "0",
			"result": "{\"code\":200,\"message\":\"success\",\"data\":[{\"skuId\":100012,\"skuName\":\"降噪耳机\",\"priceInfo\":{\"price\":459,\"lowestPrice\":499},\"imageInfo\":{\"imageList\":[{\"url\":\"https://img.jd/1.jpg\"}]},\"materialUrl\":\"item.jd.com/100012.html\",\"inOrderCount30Days\":3000,\"shopInfo\":{\"shopName\":\"京东自营\"}}]}"}}`))
	}))
	defer server.Close()

	src := NewJDSource(config.MarketplaceConfig{JDAppKey: "key", JDAppSecret: "secret", JDSiteID: "site"},
		WithEndpoint(server.URL), WithClock(fixedClock))

	products, err := src.Search(context.Background(), "耳机")
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "降噪耳机", p.Name)
	assert.Equal(t, 459.0, p.Price)
	assert.Equal(t, "100012", p.PlatformProductID)
	assert.Equal(t, "https://img.jd/1.jpg", p.ImageURL)
	assert.Equal(t, int64(3000), p.SalesCount)
	assert.Equal(t, "京东自营", p.ShopName)

	assert.Equal(t, jdMethod, body["method"])
	var dto jdGoodsRequest
	require.NoError(t, json.Unmarshal([]byte(body["goodsReqDTO"]), &dto))
	assert.Equal(t, "耳机", dto.Keyword)
	assert.Equal(t, "site", dto.SiteID)
	sign := body["sign"]
	delete(body, "sign")
	assert.Equal(t, Sign("secret", body), sign)
}

func TestJDSource_CancelledSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	src := NewJDSource(config.MarketplaceConfig{JDAppKey: "key", JDAppSecret: "secret"}, WithEndpoint(server.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := src.Search(ctx, "耳机")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(NewTaobaoSource(config.MarketplaceConfig{}), NewJDSource(config.MarketplaceConfig{}))

	assert.Equal(t, []string{PlatformJD, PlatformTaobao}, reg.Platforms())

	s, err := reg.Get(" JD ")
	require.NoError(t, err)
	assert.Equal(t, PlatformJD, s.Platform())

	_, err = reg.Get("pinduoduo")
	assert.ErrorIs(t, err, ErrUnknownPlatform)

	products, err := reg.Search(context.Background(), "taobao", "围巾")
	require.NoError(t, err)
	assert.Len(t, products, PlaceholderCount)

	_, err = reg.Search(context.Background(), "pinduoduo", "围巾")
	assert.ErrorIs(t, err, ErrUnknownPlatform)
}
