package provider

import "errors"

// ErrNoScenes is returned by archive searches that match nothing.
var ErrNoScenes = errors.New("no scenes for selected period")
