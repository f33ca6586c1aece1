package message

import (
	"fmt"
	"math"
)

const (
	// DefaultCRS is the target CRS used when the message does not name one.
	DefaultCRS = "+proj=longlat +ellps=WGS84"

	// DefaultInterpolation is used when the message does not request an
	// interpolation method.
	DefaultInterpolation = "ewa-nn"
)

// Interpolations lists the resampling methods the service supports.
var Interpolations = []string{"near", "bilinear", "ewa", "ewa-nn"}

// Parameters are the validated reprojection inputs derived from a message.
type Parameters struct {
	CRS           string   `json:"crs"`
	Interpolation string   `json:"interpolation"`
	GranuleURL    string   `json:"granuleUrl,omitempty"`
	InputFile     string   `json:"inputFile,omitempty"`
	XExtent       *Extent  `json:"xExtent,omitempty"`
	YExtent       *Extent  `json:"yExtent,omitempty"`
	XRes          *float64 `json:"xres,omitempty"`
	YRes          *float64 `json:"yres,omitempty"`
	Width         *int     `json:"width,omitempty"`
	Height        *int     `json:"height,omitempty"`
}

// DeriveParameters extracts reprojection parameters from a Harmony message,
// applying defaults for absent values and rejecting inconsistent grids. The
// granule URL comes from the inbound STAC item asset; the input file is the
// locally staged copy of that granule.
func DeriveParameters(msg *Message, granuleURL, inputFile string) (*Parameters, error) {
	format := msg.Format

	params := &Parameters{
		CRS:           format.CRS,
		Interpolation: format.Interpolation,
		GranuleURL:    granuleURL,
		InputFile:     inputFile,
		Width:         format.Width,
		Height:        format.Height,
	}

	if params.CRS == "" {
		params.CRS = DefaultCRS
	}

	if params.Interpolation == "" || params.Interpolation == "None" {
		params.Interpolation = DefaultInterpolation
	}

	if !validInterpolation(params.Interpolation) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedInterpolation, params.Interpolation)
	}

	if format.ScaleExtent != nil {
		params.XExtent = format.ScaleExtent.X
		params.YExtent = format.ScaleExtent.Y
	}

	if format.ScaleSize != nil {
		params.XRes = format.ScaleSize.X
		params.YRes = format.ScaleSize.Y
	}

	// Extents and dimensions must be specified for both axes or neither.
	if (params.XExtent == nil) != (params.YExtent == nil) {
		return nil, fmt.Errorf("%w: scale extent must include both x and y", ErrInvalidTargetGrid)
	}

	if (params.Width == nil) != (params.Height == nil) {
		return nil, fmt.Errorf("%w: width and height must be specified together", ErrInvalidTargetGrid)
	}

	if (params.XRes == nil) != (params.YRes == nil) {
		return nil, fmt.Errorf("%w: scale size must include both x and y", ErrInvalidTargetGrid)
	}

	// A request carrying both a resolution and output dimensions must
	// describe one self-consistent grid.
	hasResolution := params.XRes != nil || params.YRes != nil
	hasDimensions := params.Width != nil || params.Height != nil

	if hasResolution && hasDimensions && !selfConsistentGrid(params) {
		return nil, fmt.Errorf("%w: scale size disagrees with requested dimensions", ErrInvalidTargetGrid)
	}

	return params, nil
}

func validInterpolation(interpolation string) bool {
	for _, valid := range Interpolations {
		if interpolation == valid {
			return true
		}
	}
	return false
}

// selfConsistentGrid reports whether the extent, resolution, and dimensions
// agree with each other: the number of cells derived from extent and cell
// size must equal the requested dimension on each axis.
func selfConsistentGrid(params *Parameters) bool {
	if params.XExtent == nil || params.YExtent == nil {
		return false
	}

	return dimensionAgrees(params.Width, params.XExtent, params.XRes) &&
		dimensionAgrees(params.Height, params.YExtent, params.YRes)
}

func dimensionAgrees(dimension *int, extent *Extent, resolution *float64) bool {
	if dimension == nil || resolution == nil || *resolution == 0 {
		return false
	}

	derived := math.Abs((extent.Max - extent.Min) / *resolution)
	return math.Abs(derived-float64(*dimension)) < 0.001
}
