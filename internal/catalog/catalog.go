// Package catalog loads the ordered list of players put up for auction.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"

	"github.com/DoyleJ11/auction-backend/internal/engine"
)

//go:embed players.json
var defaultPlayers []byte

type Catalog struct {
	items []engine.Item
}

func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(defaultPlayers))
}

// Load reads a catalog from path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a JSON array of player records. id, name, role and basePrice
// are mapped onto the item; every other key is kept as an attribute.
func Parse(r io.Reader) (*Catalog, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	items := make([]engine.Item, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		item, err := toItem(rec)
		if err != nil {
			return nil, fmt.Errorf("catalog record %d: %w", i, err)
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("catalog record %d: duplicate id %q", i, item.ID)
		}
		seen[item.ID] = true
		items = append(items, item)
	}
	return &Catalog{items: items}, nil
}

// Items returns a copy of the catalog in auction order.
func (c *Catalog) Items() []engine.Item {
	out := make([]engine.Item, len(c.items))
	for i, it := range c.items {
		out[i] = it
		if it.Attributes != nil {
			out[i].Attributes = maps.Clone(it.Attributes)
		}
	}
	return out
}

func (c *Catalog) Len() int { return len(c.items) }

func toItem(rec map[string]any) (engine.Item, error) {
	var item engine.Item

	switch id := rec["id"].(type) {
	case string:
		item.ID = id
	case json.Number:
		item.ID = id.String()
	default:
		return item, fmt.Errorf("missing id")
	}

	name, _ := rec["name"].(string)
	if name == "" {
		return item, fmt.Errorf("missing name")
	}
	item.Name = name
	item.Role, _ = rec["role"].(string)

	if n, ok := rec["basePrice"].(json.Number); ok {
		price, err := n.Int64()
		if err != nil {
			return item, fmt.Errorf("basePrice: %w", err)
		}
		item.BasePrice = price
	}

	for k, v := range rec {
		switch k {
		case "id", "name", "role", "basePrice":
			continue
		}
		if item.Attributes == nil {
			item.Attributes = make(map[string]any)
		}
		item.Attributes[k] = v
	}
	return item, nil
}
