package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Link is one typed hyperlink from a STAC document's links array.
// The rel field determines how the crawler treats the target:
// "collection" links continue the graph walk, other relations are leaves.
type Link struct {
	// Href is the link target, relative or absolute.
	Href string `json:"href"`

	// Rel is the typed role of the link (item, collection, child, self, ...).
	Rel string `json:"rel"`

	// Type is the media type hint, when present.
	Type string `json:"type,omitempty"`

	// Title is a human-readable label, when present.
	Title string `json:"title,omitempty"`
}

// Asset describes one downstream file attached to a STAC item,
// typically a raster image.
type Asset struct {
	// Href is the asset location, relative or absolute.
	Href string `json:"href"`

	// Title is a human-readable label, when present.
	Title string `json:"title,omitempty"`

	// Description explains the asset, when present.
	Description string `json:"description,omitempty"`

	// Type is the media type, when present.
	Type string `json:"type,omitempty"`

	// Roles lists semantic roles such as "visual" or "data".
	Roles []string `json:"roles,omitempty"`
}

// AssetMap is the assets object of a STAC item with JSON object order
// preserved.
//
// Design decision: encoding/json decodes objects into maps with undefined
// iteration order, but asset ranking is specified as "first-encountered
// wins". We keep the key order from the wire so ranking is deterministic
// and matches what a human sees in the document.
type AssetMap struct {
	// Names holds the asset names in document order.
	Names []string

	// ByName maps each asset name to its descriptor.
	ByName map[string]Asset
}

// UnmarshalJSON decodes an assets object while recording key order.
// A JSON null yields an empty AssetMap.
func (m *AssetMap) UnmarshalJSON(data []byte) error {
	m.Names = nil
	m.ByName = nil

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil { // JSON null
		return nil
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("assets: expected object, got %v", tok)
	}

	m.ByName = make(map[string]Asset)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("assets: expected string key, got %v", keyTok)
		}

		var asset Asset
		if err := dec.Decode(&asset); err != nil {
			return fmt.Errorf("assets[%s]: %w", key, err)
		}

		m.Names = append(m.Names, key)
		m.ByName[key] = asset
	}

	return nil
}

// MarshalJSON encodes the assets object in document order.
func (m AssetMap) MarshalJSON() ([]byte, error) {
	if len(m.Names) == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.Names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.ByName[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Len returns the number of assets.
func (m AssetMap) Len() int {
	return len(m.Names)
}

// Get returns the asset with the given name.
func (m AssetMap) Get(name string) (Asset, bool) {
	a, ok := m.ByName[name]
	return a, ok
}

// CatalogDocument is the decoded JSON body of a fetched STAC resource.
// It is consumed entirely within one traversal or derivation step and
// never retained beyond it.
type CatalogDocument struct {
	// Type is the document type ("Catalog", "Collection", or "Feature").
	Type string `json:"type"`

	// ID is the document identifier.
	ID string `json:"id"`

	// StacVersion is the STAC spec version the document declares.
	StacVersion string `json:"stac_version"`

	// Title is a human-readable label, when present.
	Title string `json:"title,omitempty"`

	// Description explains the resource, when present.
	Description string `json:"description,omitempty"`

	// Properties holds item metadata (datetime, event, grid, tile, ...).
	Properties map[string]any `json:"properties,omitempty"`

	// Assets maps asset names to descriptors, in document order.
	Assets AssetMap `json:"assets,omitempty"`

	// Links is the ordered sequence of typed hyperlinks.
	Links []Link `json:"links,omitempty"`
}

// IsItem reports whether the document is a STAC Item: a GeoJSON Feature
// carrying a stac_version. Documents failing this check are not an error,
// they are simply not items.
func (d *CatalogDocument) IsItem() bool {
	return d.Type == "Feature" && d.StacVersion != ""
}

// StringProperty returns the named property as a string, or "" when the
// property is absent or not a string.
func (d *CatalogDocument) StringProperty(name string) string {
	if d.Properties == nil {
		return ""
	}
	if v, ok := d.Properties[name].(string); ok {
		return v
	}
	return ""
}
