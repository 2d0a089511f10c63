package archive

import (
	"errors"

	"github.com/robert-malhotra/burn-severity/internal/provider"
)

var (
	// ErrNoScenes is returned when a search matches no scenes.
	ErrNoScenes = provider.ErrNoScenes

	// ErrBadBandFile is returned when a band identifier cannot be parsed from a file name.
	ErrBadBandFile = errors.New("cannot parse band from file name")
)
