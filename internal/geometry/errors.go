package geometry

import "errors"

var (
	// ErrInvalidBBox is returned when a bounding box is malformed or inverted.
	ErrInvalidBBox = errors.New("invalid bounding box")

	// ErrInvalidGeometry is returned when a geometry cannot be converted to a polygon.
	ErrInvalidGeometry = errors.New("invalid geometry")
)
