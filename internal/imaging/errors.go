package imaging

import "errors"

// Sentinel errors for pipeline-fatal geometry and decoding failures.
//
// Callers are expected to test with errors.Is; both are wrapped with
// additional context at the point of failure.
var (
	// ErrInvalidImage indicates the input bytes could not be decoded as a
	// supported image format (JPEG or PNG). Always fatal to the request.
	ErrInvalidImage = errors.New("invalid image: data could not be decoded")

	// ErrDegenerateGeometry indicates perspective correction received a
	// quadrilateral whose corners are (near-)collinear, so no homography
	// exists. Treated like a failed detection by callers but logged
	// distinctly for diagnosis.
	ErrDegenerateGeometry = errors.New("degenerate geometry: card corners are near-collinear")
)
