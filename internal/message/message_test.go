package message

import (
	"errors"
	"testing"

	stac "github.com/planetlabs/go-stac"
)

func TestGranuleAsset(t *testing.T) {
	tests := []struct {
		name    string
		item    *stac.Item
		want    string
		wantErr error
	}{
		{
			name: "conventional data asset key",
			item: &stac.Item{
				Assets: map[string]*stac.Asset{
					"data": {Href: "https://example.com/granule.nc", Roles: []string{"data"}},
				},
			},
			want: "https://example.com/granule.nc",
		},
		{
			name: "data role under another key",
			item: &stac.Item{
				Assets: map[string]*stac.Asset{
					"browse":  {Href: "https://example.com/browse.png", Roles: []string{"overview"}},
					"granule": {Href: "https://example.com/granule.nc", Roles: []string{"data"}},
				},
			},
			want: "https://example.com/granule.nc",
		},
		{
			name: "no data role",
			item: &stac.Item{
				Assets: map[string]*stac.Asset{
					"browse": {Href: "https://example.com/browse.png", Roles: []string{"overview"}},
				},
			},
			wantErr: ErrNoDataAsset,
		},
		{
			name:    "nil item",
			item:    nil,
			wantErr: ErrNoDataAsset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GranuleAsset(tt.item)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("GranuleAsset() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("GranuleAsset() = %q, want %q", got, tt.want)
			}
		})
	}
}
