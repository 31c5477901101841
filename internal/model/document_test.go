package model

import (
	"encoding/json"
	"testing"
)

// TestAssetMapUnmarshal verifies order-preserving decode of the assets object.
func TestAssetMapUnmarshal(t *testing.T) {
	t.Parallel()

	t.Run("preserves document order", func(t *testing.T) {
		t.Parallel()

		data := `{"data":{"href":"d.tif"},"visual":{"href":"v.tif"},"thumbnail":{"href":"t.png"}}`
		var m AssetMap
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}

		want := []string{"data", "visual", "thumbnail"}
		if len(m.Names) != len(want) {
			t.Fatalf("expected %d assets, got %d", len(want), len(m.Names))
		}
		for i, name := range want {
			if m.Names[i] != name {
				t.Errorf("expected name[%d] = %q, got %q", i, name, m.Names[i])
			}
		}

		if a, ok := m.Get("visual"); !ok || a.Href != "v.tif" {
			t.Errorf("expected visual href v.tif, got %+v (ok=%v)", a, ok)
		}
	})

	t.Run("null yields empty map", func(t *testing.T) {
		t.Parallel()

		var m AssetMap
		if err := json.Unmarshal([]byte(`null`), &m); err != nil {
			t.Fatalf("failed to unmarshal null: %v", err)
		}
		if m.Len() != 0 {
			t.Errorf("expected empty map, got %d assets", m.Len())
		}
	})

	t.Run("rejects non-object", func(t *testing.T) {
		t.Parallel()

		var m AssetMap
		if err := json.Unmarshal([]byte(`["not","an","object"]`), &m); err == nil {
			t.Error("expected error for array input")
		}
	})

	t.Run("round trips through marshal", func(t *testing.T) {
		t.Parallel()

		data := `{"b":{"href":"b.tif"},"a":{"href":"a.tif"}}`
		var m AssetMap
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}

		out, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}
		if string(out) != data {
			t.Errorf("expected %s, got %s", data, out)
		}
	})
}

// TestCatalogDocumentIsItem verifies STAC Item detection.
func TestCatalogDocumentIsItem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  CatalogDocument
		want bool
	}{
		{
			name: "feature with stac_version is an item",
			doc:  CatalogDocument{Type: "Feature", StacVersion: "1.0.0"},
			want: true,
		},
		{
			name: "feature without stac_version is not an item",
			doc:  CatalogDocument{Type: "Feature"},
			want: false,
		},
		{
			name: "collection is not an item",
			doc:  CatalogDocument{Type: "Collection", StacVersion: "1.0.0"},
			want: false,
		},
		{
			name: "empty document is not an item",
			doc:  CatalogDocument{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.doc.IsItem(); got != tt.want {
				t.Errorf("IsItem() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestStringProperty verifies typed property access.
func TestStringProperty(t *testing.T) {
	t.Parallel()

	doc := CatalogDocument{
		Properties: map[string]any{
			"event": "Hurricane-X",
			"grid":  44, // not a string
		},
	}

	if got := doc.StringProperty("event"); got != "Hurricane-X" {
		t.Errorf("expected Hurricane-X, got %q", got)
	}
	if got := doc.StringProperty("grid"); got != "" {
		t.Errorf("expected empty string for non-string property, got %q", got)
	}
	if got := doc.StringProperty("missing"); got != "" {
		t.Errorf("expected empty string for missing property, got %q", got)
	}

	var empty CatalogDocument
	if got := empty.StringProperty("event"); got != "" {
		t.Errorf("expected empty string on nil properties, got %q", got)
	}
}

// TestCatalogDocumentDecode verifies a full document decodes with links and assets.
func TestCatalogDocumentDecode(t *testing.T) {
	t.Parallel()

	data := `{
		"type": "Feature",
		"id": "10300100D3004A00-visual-tile",
		"stac_version": "1.0.0",
		"properties": {"datetime": "2025-01-01T00:00:00Z"},
		"assets": {"visual": {"href": "visual.tif", "roles": ["visual"]}},
		"links": [
			{"href": "../collection.json", "rel": "collection"},
			{"href": "./self.json", "rel": "self"}
		]
	}`

	var doc CatalogDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		t.Fatalf("failed to unmarshal document: %v", err)
	}

	if !doc.IsItem() {
		t.Error("expected document to be an item")
	}
	if len(doc.Links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(doc.Links))
	}
	if doc.Links[0].Rel != "collection" {
		t.Errorf("expected first link rel collection, got %q", doc.Links[0].Rel)
	}
	if doc.Assets.Len() != 1 {
		t.Errorf("expected 1 asset, got %d", doc.Assets.Len())
	}
}
