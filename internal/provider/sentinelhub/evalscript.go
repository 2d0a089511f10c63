package sentinelhub

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/burn-severity/internal/raster"
)

// Evalscript returns a V3 evalscript that outputs bands in the given order
// as FLOAT32.
func Evalscript(bands []raster.BandID) string {
	quoted := make([]string, len(bands))
	samples := make([]string, len(bands))
	for i, b := range bands {
		quoted[i] = fmt.Sprintf("%q", b.String())
		samples[i] = "sample." + b.String()
	}

	return fmt.Sprintf(`//VERSION=3
function setup() {
    return {
        input: [{
            bands: [%s]
        }],
        output: {
            bands: %d,
            sampleType: "FLOAT32"
        }
    };
}

function evaluatePixel(sample) {
    return [%s];
}
`, strings.Join(quoted, ", "), len(bands), strings.Join(samples, ", "))
}
