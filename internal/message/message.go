// Package message models the subset of the Harmony operation message the
// Swath Projector consumes, and derives validated reprojection parameters
// from it. The numerical resampling itself is performed downstream; this
// package only guarantees the requested target grid is well formed.
package message

import (
	"slices"
	"sort"

	stac "github.com/planetlabs/go-stac"
)

// Message is an inbound Harmony operation message.
type Message struct {
	Format          Format   `json:"format"`
	Sources         []Source `json:"sources,omitempty"`
	StagingLocation string   `json:"stagingLocation,omitempty"`
	AccessToken     string   `json:"accessToken,omitempty"`
}

// Format carries the requested output grid: target CRS, interpolation
// method, scale extents, scale sizes, and output dimensions.
type Format struct {
	CRS           string       `json:"crs,omitempty"`
	Interpolation string       `json:"interpolation,omitempty"`
	ScaleExtent   *ScaleExtent `json:"scaleExtent,omitempty"`
	ScaleSize     *ScaleSize   `json:"scaleSize,omitempty"`
	Height        *int         `json:"height,omitempty"`
	Width         *int         `json:"width,omitempty"`
}

// ScaleExtent is the target grid extent along each axis.
type ScaleExtent struct {
	X *Extent `json:"x,omitempty"`
	Y *Extent `json:"y,omitempty"`
}

// Extent is a closed interval along one grid axis.
type Extent struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ScaleSize is the target cell size along each axis.
type ScaleSize struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
}

// Source identifies the collection a granule belongs to and the variables
// requested from it.
type Source struct {
	Collection string           `json:"collection,omitempty"`
	ShortName  string           `json:"shortName,omitempty"`
	Variables  []SourceVariable `json:"variables,omitempty"`
}

// SourceVariable is a single requested variable from a source collection.
type SourceVariable struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	FullPath string `json:"fullPath,omitempty"`
}

// GranuleAsset returns the href of the input granule from a STAC item: the
// first asset carrying a "data" role. The conventional "data" asset key is
// preferred; otherwise asset keys are scanned in sorted order so the choice
// is deterministic.
func GranuleAsset(item *stac.Item) (string, error) {
	if item == nil || len(item.Assets) == 0 {
		return "", ErrNoDataAsset
	}

	if asset, ok := item.Assets["data"]; ok && asset != nil && asset.Href != "" {
		return asset.Href, nil
	}

	keys := make([]string, 0, len(item.Assets))
	for key := range item.Assets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		asset := item.Assets[key]
		if asset != nil && asset.Href != "" && slices.Contains(asset.Roles, "data") {
			return asset.Href, nil
		}
	}

	return "", ErrNoDataAsset
}
