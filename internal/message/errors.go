package message

import "errors"

var (
	// ErrInvalidTargetGrid is returned when a request specifies an
	// incomplete or self-inconsistent target grid.
	ErrInvalidTargetGrid = errors.New("insufficient or invalid target grid parameters")

	// ErrUnsupportedInterpolation is returned for interpolation methods the
	// service does not provide.
	ErrUnsupportedInterpolation = errors.New("unsupported interpolation method")

	// ErrNoDataAsset is returned when an input STAC item carries no asset
	// with a "data" role.
	ErrNoDataAsset = errors.New("no data asset in input item")
)
