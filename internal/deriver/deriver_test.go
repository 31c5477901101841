package deriver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nao1215/stacwalk/internal/fetch"
)

// itemServer serves a single JSON document for every path.
func itemServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDerive(t *testing.T) {
	t.Parallel()

	t.Run("visual-named asset wins over document order", func(t *testing.T) {
		t.Parallel()

		srv := itemServer(t, `{
			"type": "Feature",
			"stac_version": "1.0.0",
			"id": "item-1",
			"assets": {
				"data": {"href": "d.tif"},
				"visual": {"href": "v.tif"},
				"thumbnail": {"href": "t.png"}
			}
		}`)

		d := NewDeriver(fetch.NewFetcher(srv.Client()))
		asset, err := d.Derive(context.Background(), srv.URL+"/item.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if asset == nil {
			t.Fatal("expected a derived asset")
		}
		if asset.AssetURL != srv.URL+"/v.tif" {
			t.Errorf("expected visual asset, got %q", asset.AssetURL)
		}
		if asset.Name != "visual" {
			t.Errorf("expected name visual, got %q", asset.Name)
		}
		if asset.Inferred {
			t.Error("direct-tier asset must not be marked inferred")
		}
	})

	t.Run("first raster wins when none preferred", func(t *testing.T) {
		t.Parallel()

		srv := itemServer(t, `{
			"type": "Feature",
			"stac_version": "1.0.0",
			"id": "item-1",
			"assets": {
				"pan": {"href": "pan.tiff"},
				"ms": {"href": "ms.tif"}
			}
		}`)

		d := NewDeriver(fetch.NewFetcher(srv.Client()))
		asset, err := d.Derive(context.Background(), srv.URL+"/item.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if asset == nil || asset.AssetURL != srv.URL+"/pan.tiff" {
			t.Errorf("expected first raster pan.tiff, got %+v", asset)
		}
	})

	t.Run("resolves absolute asset hrefs unchanged", func(t *testing.T) {
		t.Parallel()

		srv := itemServer(t, `{
			"type": "Feature",
			"stac_version": "1.0.0",
			"id": "item-1",
			"assets": {
				"visual": {"href": "https://cdn.example/tiles/v.tif"}
			}
		}`)

		d := NewDeriver(fetch.NewFetcher(srv.Client()))
		asset, err := d.Derive(context.Background(), srv.URL+"/item.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if asset == nil || asset.AssetURL != "https://cdn.example/tiles/v.tif" {
			t.Errorf("expected absolute href preserved, got %+v", asset)
		}
	})

	t.Run("non-item document yields no result and no error", func(t *testing.T) {
		t.Parallel()

		srv := itemServer(t, `{"type":"Collection","id":"c","stac_version":"1.0.0"}`)

		d := NewDeriver(fetch.NewFetcher(srv.Client()))
		asset, err := d.Derive(context.Background(), srv.URL+"/c.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if asset != nil {
			t.Errorf("expected no asset for a collection, got %+v", asset)
		}
	})

	t.Run("missing stac_version means not an item", func(t *testing.T) {
		t.Parallel()

		srv := itemServer(t, `{"type":"Feature","id":"f","assets":{"visual":{"href":"v.tif"}}}`)

		d := NewDeriver(fetch.NewFetcher(srv.Client()))
		asset, err := d.Derive(context.Background(), srv.URL+"/f.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if asset != nil {
			t.Errorf("expected no asset without stac_version, got %+v", asset)
		}
	})

	t.Run("fetch failure surfaces as error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		t.Cleanup(srv.Close)

		d := NewDeriver(fetch.NewFetcher(srv.Client()))
		if _, err := d.Derive(context.Background(), srv.URL+"/item.json"); err == nil {
			t.Error("expected error on fetch failure")
		}
	})

	t.Run("falls back to pattern inference from properties", func(t *testing.T) {
		t.Parallel()

		srv := itemServer(t, `{
			"type": "Feature",
			"stac_version": "1.0.0",
			"id": "short-id",
			"properties": {
				"event": "X",
				"grid": "44",
				"tile": "033313123002",
				"datetime": "2025-01-01T00:00:00Z"
			},
			"assets": {"thumbnail": {"href": "t.png"}}
		}`)

		d := NewDeriver(fetch.NewFetcher(srv.Client()))
		asset, err := d.Derive(context.Background(), srv.URL+"/item.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if asset == nil {
			t.Fatal("expected an inferred asset")
		}
		if !asset.Inferred {
			t.Error("fallback asset must be marked inferred")
		}

		// Short id falls back to the fixed catalog identifier.
		const want = "https://maxar-opendata.s3.amazonaws.com/events/X/ard/44/033313123002/2025-01-01/10300100D3004A00-visual.tif"
		if asset.AssetURL != want {
			t.Errorf("expected %q, got %q", want, asset.AssetURL)
		}
	})

	t.Run("fallback disabled yields no result", func(t *testing.T) {
		t.Parallel()

		srv := itemServer(t, `{
			"type": "Feature",
			"stac_version": "1.0.0",
			"id": "short-id",
			"properties": {
				"event": "X",
				"grid": "44",
				"tile": "033313123002",
				"datetime": "2025-01-01T00:00:00Z"
			}
		}`)

		d := NewDeriver(fetch.NewFetcher(srv.Client()), WithPatternFallback(false))
		asset, err := d.Derive(context.Background(), srv.URL+"/item.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if asset != nil {
			t.Errorf("expected no asset with fallback disabled, got %+v", asset)
		}
	})
}

func TestIsRasterHref(t *testing.T) {
	t.Parallel()

	tests := []struct {
		href string
		want bool
	}{
		{"v.tif", true},
		{"v.TIF", true},
		{"v.tiff", true},
		{"v.TIFF", true},
		{"v.png", false},
		{"v.tif.aux", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isRasterHref(tt.href); got != tt.want {
			t.Errorf("isRasterHref(%q) = %v, want %v", tt.href, got, tt.want)
		}
	}
}
