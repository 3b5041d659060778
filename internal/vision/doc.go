// Package vision implements the slow detection path: a client for a
// multimodal vision AI service that locates a trading card semantically
// rather than geometrically.
//
// The service receives the photo plus a prompt demanding a strict JSON
// reply (card_detected, corner coordinates, confidence, coarse quality
// flags). The reply is strictly validated since model output is not
// trusted: fenced code blocks are stripped, coordinates are range-checked
// against the image, and anything malformed is treated as "no card seen"
// rather than an error. Transport failures and timeouts are real errors.
//
// Corners returned by the service are approximate. When an edge map of the
// photo is available the client snaps each corner to the nearest strong
// edge pixel within a small radius, which noticeably tightens the
// perspective correction that follows.
package vision
