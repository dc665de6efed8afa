// Operation names, statuses and bucket parameters shared by the collectors.

package metrics

// Operation names recorded through Recorder.
const (
	// OpFetchDir is a file read from the directory source.
	OpFetchDir = "fetch_dir"
	// OpFetchHTTP is a GET against the http source.
	OpFetchHTTP = "fetch_http"
	// OpFeedLoad is fetching and parsing the feed document.
	OpFeedLoad = "feed_load"
	// OpSessionLoad is a complete session load.
	OpSessionLoad = "session_load"
	// OpTimeseriesLoad is the optional timeseries fetch inside a session load.
	OpTimeseriesLoad = "timeseries_load"
	// OpNavigation is a navigation controller transition.
	OpNavigation = "navigation"
	// OpRender is rendering a dashboard page.
	OpRender = "render"
)

// Status values recorded with an operation.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	// StatusStale marks a load completion discarded because a newer one was issued.
	StatusStale = "stale"
	// StatusMissing marks an optional input that was not available.
	StatusMissing = "missing"
)

// Histogram bucket parameters.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketStart100B is the starting bucket for byte size histograms.
	BucketStart100B = 100.0
	// BucketFactor2 is the exponential growth factor of 2.
	BucketFactor2 = 2
	// BucketFactor10 is the exponential growth factor of 10.
	BucketFactor10 = 10
	// BucketCount6 defines 6 exponential buckets.
	BucketCount6 = 6
	// BucketCount15 defines 15 exponential buckets (1ms to ~16s).
	BucketCount15 = 15
)
