package api

import (
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/burn-severity/internal/jobs"
)

const stacVersion = "1.0.0"

// Asset names of a job's outputs.
const (
	AssetSeverity = "severity"
	AssetLegend   = "legend"
	AssetMap      = "map"
)

var assetTypes = map[string]string{
	AssetSeverity: "image/tiff; application=geotiff",
	AssetLegend:   "application/json",
	AssetMap:      "image/png",
}

func assetPath(s *jobs.Summary, asset string) (string, bool) {
	switch asset {
	case AssetSeverity:
		return s.Outputs.Raster, true
	case AssetLegend:
		return s.Outputs.Legend, true
	case AssetMap:
		return s.Outputs.Image, true
	default:
		return "", false
	}
}

// JobResponse is a job with navigation links.
type JobResponse struct {
	*jobs.Job
	Links []*stac.Link `json:"links"`
}

func (h *Handlers) jobResponse(job *jobs.Job) *JobResponse {
	self := h.jobURL(job.ID)
	links := []*stac.Link{
		{Rel: "self", Href: self, Type: "application/json"},
		{Rel: "item", Href: self + "/item", Type: "application/geo+json"},
	}
	if job.Status == jobs.StatusSucceeded {
		for _, name := range []string{AssetSeverity, AssetLegend, AssetMap} {
			links = append(links, &stac.Link{
				Rel:  "enclosure",
				Href: self + "/assets/" + name,
				Type: assetTypes[name],
			})
		}
	}
	return &JobResponse{Job: job, Links: links}
}

// JobItem describes a job as a STAC item: the AOI is its geometry, the fire
// dates its time range and the outputs of a succeeded job its assets.
func JobItem(job *jobs.Job, baseURL, defaultProvider string) (*stac.Item, error) {
	req, kind, err := job.Spec.Request(defaultProvider)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}

	self := baseURL + "/v1/jobs/" + job.ID
	item := &stac.Item{
		Version:    stacVersion,
		Id:         job.ID,
		Geometry:   geojson.NewGeometry(req.AOI.Geometry()),
		Bbox:       req.AOI.BBox().Slice(),
		Properties: make(map[string]any),
		Assets:     make(map[string]*stac.Asset),
		Links: []*stac.Link{
			{Rel: "self", Href: self + "/item", Type: "application/geo+json"},
			{Rel: "related", Href: self, Type: "application/json"},
		},
	}

	// A fire spans a range, so datetime is null.
	item.Properties["datetime"] = nil
	item.Properties["start_datetime"] = req.Start.Format(time.RFC3339)
	item.Properties["end_datetime"] = req.End.Format(time.RFC3339)
	item.Properties["created"] = job.CreatedAt.Format(time.RFC3339)
	item.Properties["burn:status"] = string(job.Status)
	item.Properties["burn:provider"] = kind.String()
	if job.Error != "" {
		item.Properties["burn:error"] = job.Error
	}

	if s := job.Result; s != nil && job.Status == jobs.StatusSucceeded {
		item.Properties["burn:pre_window"] = s.PreWindow
		item.Properties["burn:post_window"] = s.PostWindow
		item.Properties["burn:histogram"] = s.Histogram
		item.Properties["burn:legend"] = s.Legend

		item.Assets[AssetSeverity] = &stac.Asset{
			Href:  self + "/assets/" + AssetSeverity,
			Title: "Burn severity classes",
			Type:  assetTypes[AssetSeverity],
			Roles: []string{"data"},
		}
		item.Assets[AssetLegend] = &stac.Asset{
			Href:  self + "/assets/" + AssetLegend,
			Title: "Class legend",
			Type:  assetTypes[AssetLegend],
			Roles: []string{"metadata"},
		}
		item.Assets[AssetMap] = &stac.Asset{
			Href:  self + "/assets/" + AssetMap,
			Title: "Burn severity map",
			Type:  assetTypes[AssetMap],
			Roles: []string{"overview"},
		}
	}
	return item, nil
}
