package usecase

import "errors"

var (
	// ErrTileNotFound is returned for tiles that cannot be generated and
	// have not been uploaded.
	ErrTileNotFound = errors.New("tile not found")

	// ErrUpstream wraps failures of the DEM and imagery providers.
	ErrUpstream = errors.New("upstream tile provider failed")

	ErrInvalidModel = errors.New("payload is not a binary glTF model")
)
