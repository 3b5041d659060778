// Package imaging provides the geometric and preprocessing primitives the
// grading pipeline is built on.
//
// This package implements image decoding, contrast enhancement, edge-preserving
// denoising, adaptive edge extraction, polygon/quadrilateral geometry, and
// perspective correction. All operations work with standard Go image.Image
// types and use a coordinate system where (0,0) is at the top-left corner,
// X increases rightward, and Y increases downward.
//
// # Pipeline Role
//
// Every detector proposes a card boundary as a Quad, validated by the single
// ValidateQuad predicate in this package. Correct() is the single geometric
// normalization point: it warps a validated Quad to the canonical card
// rectangle (CardWidth x CardHeight) that all scoring analyzers consume.
//
// # Immutability
//
// Functions never mutate their input image; each stage returns a newly
// allocated image. Correct() is a pure function of (image, quad): identical
// inputs produce bit-identical output.
//
// # Error Handling
//
// Decoding failures return ErrInvalidImage. Perspective correction with
// near-collinear corners returns ErrDegenerateGeometry. Quad validation is a
// predicate, not an error path: a candidate either passes all conditions or
// is rejected.
package imaging
