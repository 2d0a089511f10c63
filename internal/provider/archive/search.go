package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/planetlabs/go-ogc/filter"
	"github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/burn-severity/internal/cover"
	"github.com/robert-malhotra/burn-severity/internal/geometry"
	"github.com/robert-malhotra/burn-severity/internal/window"
)

const (
	cloudCoverProperty = "eo:cloud_cover"
	productAsset       = "PRODUCT"
	searchPageLimit    = 100
)

// SearchRequest is a STAC API item search body.
type SearchRequest struct {
	Collections []string          `json:"collections"`
	Intersects  *geojson.Geometry `json:"intersects,omitempty"`
	Datetime    string            `json:"datetime"`
	Limit       int               `json:"limit"`
	FilterLang  string            `json:"filter-lang,omitempty"`
	Filter      *filter.Filter    `json:"filter,omitempty"`
}

// SearchResponse is a STAC ItemCollection page.
type SearchResponse struct {
	Type     string       `json:"type"`
	Features []*stac.Item `json:"features"`
	Links    []*stac.Link `json:"links"`
}

// CloudCoverFilter returns the CQL2 filter 0 <= eo:cloud_cover <= ceiling.
func CloudCoverFilter(ceiling float64) *filter.Filter {
	return &filter.Filter{
		Expression: &filter.And{
			Args: []filter.BooleanExpression{
				&filter.Comparison{
					Name:  filter.GreaterThanOrEquals,
					Left:  &filter.Property{Name: cloudCoverProperty},
					Right: &filter.Number{Value: 0},
				},
				&filter.Comparison{
					Name:  filter.LessThanOrEquals,
					Left:  &filter.Property{Name: cloudCoverProperty},
					Right: &filter.Number{Value: ceiling},
				},
			},
		},
	}
}

// BuildSearch builds the search body for aoi and w.
func BuildSearch(collection string, aoi geometry.AOI, w window.DateWindow, cloudCeiling float64) SearchRequest {
	end := w.End.Add(24*time.Hour - time.Second)
	return SearchRequest{
		Collections: []string{collection},
		Intersects:  geojson.NewGeometry(aoi.Geometry()),
		Datetime:    w.Start.Format(time.RFC3339) + "/" + end.Format(time.RFC3339),
		Limit:       searchPageLimit,
		FilterLang:  "cql2-json",
		Filter:      CloudCoverFilter(cloudCeiling),
	}
}

// ItemToFootprint converts a STAC item to a footprint. The ingestion time
// is the item's "published" property, falling back to "created" and then
// "datetime".
func ItemToFootprint(item *stac.Item, downloadURL string) (cover.Footprint, error) {
	if item == nil {
		return cover.Footprint{}, fmt.Errorf("item is nil")
	}
	if item.Geometry == nil {
		return cover.Footprint{}, fmt.Errorf("item %s has no geometry", item.Id)
	}

	raw, err := json.Marshal(item.Geometry)
	if err != nil {
		return cover.Footprint{}, fmt.Errorf("item %s: failed to encode geometry: %w", item.Id, err)
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return cover.Footprint{}, fmt.Errorf("item %s: failed to decode geometry: %w", item.Id, err)
	}
	poly, err := geometry.FromOrb(g.Geometry())
	if err != nil {
		return cover.Footprint{}, fmt.Errorf("item %s: %w", item.Id, err)
	}

	cloudCover, ok := item.Properties[cloudCoverProperty].(float64)
	if !ok {
		return cover.Footprint{}, fmt.Errorf("item %s has no %s", item.Id, cloudCoverProperty)
	}

	var ingestion time.Time
	for _, key := range []string{"published", "created", "datetime"} {
		s, ok := item.Properties[key].(string)
		if !ok {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			ingestion = t
			break
		}
	}

	fp := cover.NewFootprint(item.Id, poly, cloudCover, ingestion)
	fp.Title = item.Id
	if asset, ok := item.Assets[productAsset]; ok && asset.Href != "" {
		fp.Href = asset.Href
	} else {
		fp.Href = fmt.Sprintf("%s/Products(%s)/$value", downloadURL, item.Id)
	}
	return fp, nil
}
