package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nasa/harmony-swath-projector/internal/config"
	"github.com/nasa/harmony-swath-projector/internal/message"
	"github.com/nasa/harmony-swath-projector/internal/rules"
)

const testRuleDocument = `{
	"Identification": "handler test configuration",
	"Version": 1,
	"CollectionShortNamePath": ["short_name"],
	"Mission": {
		"VNP10": "VIIRS",
		"TEMPO_.*_L2": "TEMPO"
	},
	"ExcludedScienceVariables": [
		{
			"Applicability": {
				"Mission": "TEMPO",
				"ShortNamePath": "TEMPO_NO2_L2_NRT",
				"VariablePattern": ["/support_data/.*"]
			}
		}
	],
	"MetadataOverrides": [
		{
			"Applicability": {
				"Mission": "VIIRS",
				"ShortNamePath": "VNP10",
				"VariablePattern": "/SnowData/.*"
			},
			"Attributes": [
				{"Name": "coordinates", "Value": "/GeolocationData/latitude, /GeolocationData/longitude"}
			]
		}
	]
}`

type fakeResolver struct {
	shortNames map[string]string
}

func (f *fakeResolver) CollectionShortName(_ context.Context, conceptID string) (string, error) {
	if shortName, ok := f.shortNames[conceptID]; ok {
		return shortName, nil
	}
	return "", fmt.Errorf("collection not found: %s", conceptID)
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	doc, err := rules.Parse([]byte(testRuleDocument))
	if err != nil {
		t.Fatalf("rules.Parse() failed: %v", err)
	}

	cfg := &config.Config{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handlers := NewHandlers(cfg, doc, logger).WithShortNameResolver(&fakeResolver{
		shortNames: map[string]string{"C100-TEST": "VNP10"},
	})

	return NewRouter(handlers, logger)
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodGet, "/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestResolve(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodPost, "/resolve", `{
		"shortName": "VNP10",
		"variables": ["/SnowData/snow_cover", "/GeolocationData/latitude"]
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp ResolveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	if resp.Mission != "VIIRS" {
		t.Errorf("mission = %q, want VIIRS", resp.Mission)
	}

	if len(resp.Variables) != 2 {
		t.Fatalf("expected 2 variable decisions, got %d", len(resp.Variables))
	}

	snow := resp.Variables[0]
	if snow.Excluded {
		t.Error("snow_cover marked excluded")
	}
	if snow.Overrides["coordinates"] != "/GeolocationData/latitude, /GeolocationData/longitude" {
		t.Errorf("snow_cover overrides = %v", snow.Overrides)
	}

	latitude := resp.Variables[1]
	if len(latitude.Overrides) != 0 {
		t.Errorf("latitude should have no overrides, got %v", latitude.Overrides)
	}
}

func TestResolveExclusion(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodPost, "/resolve", `{
		"shortName": "TEMPO_NO2_L2_NRT",
		"variables": ["/support_data/gas_profile", "/product/no2"]
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ResolveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	if !resp.Variables[0].Excluded {
		t.Error("/support_data/gas_profile should be excluded")
	}

	if resp.Variables[1].Excluded {
		t.Error("/product/no2 should not be excluded")
	}
}

func TestResolveShortNameFromAttributes(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodPost, "/resolve", `{
		"collectionAttributes": {"short_name": "VNP10"},
		"variables": ["/SnowData/snow_cover"]
	}`)

	var resp ResolveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	if resp.ShortName != "VNP10" {
		t.Errorf("shortName = %q, want VNP10", resp.ShortName)
	}
}

func TestResolveShortNameFromCMR(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodPost, "/resolve", `{
		"collectionConceptId": "C100-TEST",
		"variables": ["/SnowData/snow_cover"]
	}`)

	var resp ResolveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	if resp.ShortName != "VNP10" {
		t.Errorf("shortName = %q, want VNP10", resp.ShortName)
	}

	if resp.Mission != "VIIRS" {
		t.Errorf("mission = %q, want VIIRS", resp.Mission)
	}
}

func TestResolveUnknownCollection(t *testing.T) {
	// An unresolvable short name is not fatal: rules that need one simply
	// never match, so every variable comes back unexcluded with no
	// overrides.
	rec := doRequest(t, newTestRouter(t), http.MethodPost, "/resolve", `{
		"collectionConceptId": "C999-UNKNOWN",
		"variables": ["/SnowData/snow_cover"]
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ResolveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	if resp.ShortName != "" || resp.Mission != "" {
		t.Errorf("expected empty identity, got shortName=%q mission=%q",
			resp.ShortName, resp.Mission)
	}

	if resp.Variables[0].Excluded || len(resp.Variables[0].Overrides) != 0 {
		t.Errorf("unexpected decision: %+v", resp.Variables[0])
	}
}

func TestResolveBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid JSON", body: `{not json`},
		{name: "no variables", body: `{"shortName": "VNP10"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, newTestRouter(t), http.MethodPost, "/resolve", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestParameters(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodPost, "/parameters", `{
		"format": {
			"crs": "EPSG:4326",
			"interpolation": "bilinear"
		}
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var params map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &params); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	if params["crs"] != "EPSG:4326" {
		t.Errorf("crs = %v, want EPSG:4326", params["crs"])
	}

	if params["interpolation"] != "bilinear" {
		t.Errorf("interpolation = %v, want bilinear", params["interpolation"])
	}
}

func TestParametersDefaults(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodPost, "/parameters", `{"format": {}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var params map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &params); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	if params["crs"] != message.DefaultCRS {
		t.Errorf("crs = %v, want default %q", params["crs"], message.DefaultCRS)
	}

	if params["interpolation"] != message.DefaultInterpolation {
		t.Errorf("interpolation = %v, want default %q",
			params["interpolation"], message.DefaultInterpolation)
	}
}

func TestParametersInvalidGrid(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodPost, "/parameters", `{
		"format": {
			"scaleExtent": {"x": {"min": -180, "max": 180}}
		}
	}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestNotFound(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodGet, "/missing", "")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
