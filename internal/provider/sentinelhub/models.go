package sentinelhub

// crs84 is the CRS URI for WGS84 longitude/latitude bounds.
const crs84 = "http://www.opengis.net/def/crs/OGC/1.3/CRS84"

// ProcessRequest is the body of a Process API call.
type ProcessRequest struct {
	Input      Input  `json:"input"`
	Output     Output `json:"output"`
	Evalscript string `json:"evalscript"`
}

type Input struct {
	Bounds Bounds      `json:"bounds"`
	Data   []InputData `json:"data"`
}

type Bounds struct {
	BBox       []float64        `json:"bbox"`
	Properties BoundsProperties `json:"properties"`
}

type BoundsProperties struct {
	CRS string `json:"crs"`
}

type InputData struct {
	Type       string     `json:"type"`
	DataFilter DataFilter `json:"dataFilter"`
}

type DataFilter struct {
	TimeRange       TimeRange `json:"timeRange"`
	MosaickingOrder string    `json:"mosaickingOrder,omitempty"`
}

type TimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Output struct {
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Responses []OutputResponse `json:"responses"`
}

type OutputResponse struct {
	Identifier string       `json:"identifier"`
	Format     OutputFormat `json:"format"`
}

type OutputFormat struct {
	Type string `json:"type"`
}

// ErrorResponse is the error body returned by Sentinel Hub.
type ErrorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}
