// Package detection locates a trading card within a photograph.
//
// Two detectors cooperate under an orchestrator:
//
//   - The fast detector runs several deterministic geometric methods
//     (adaptive edge contours, perceptual color segmentation, and a
//     full-frame fallback for pre-cropped photos) entirely on the CPU and
//     proposes the best-scoring quadrilateral with a confidence in [0,1].
//   - The slow detector (any implementation of SlowDetector, normally the
//     vision-service client) is consulted only when fast confidence falls
//     below the configured threshold. It is rate-limited by a bounded
//     semaphore and bounded by a per-call timeout.
//
// # Decision Policy
//
// The fast path always runs first. A fast result at or above the threshold
// resolves the request without any network traffic. Otherwise the slow path
// runs; any non-empty slow detection is accepted as-is, since semantic
// understanding is more trustworthy than geometry on exactly the photos
// where geometry already failed. When both paths fail the orchestrator
// returns a NotDetectedError carrying every attempted method and its
// confidence so callers can give actionable feedback.
//
// # Confidence
//
// Fast-method confidence is 0.5*areaCloseness + 0.5*aspectCloseness, where
// areaCloseness rewards a card filling most of the frame and
// aspectCloseness rewards the standard 0.714 card aspect ratio. Exact ties
// between methods prefer the more geometrically precise method (edge
// contours over segmentation over full-frame).
package detection
