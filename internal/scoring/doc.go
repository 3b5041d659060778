// Package scoring grades a perspective-corrected card on the four standard
// condition categories: centering, corners, edges and surface.
//
// Each analyzer works on the same 500x700 corrected card, produces a
// sub-score on the 1-10 grading scale plus raw metrics, and reports its own
// confidence in that score. Analyzers are independent and run concurrently;
// one analyzer failing yields a partial report that says so explicitly
// rather than an overall grade quietly computed from fewer inputs.
//
// Scores map from raw measurements through fixed bracket tables (whitening
// percent, scratch counts, centering ratios). The tables are monotonic:
// worse measurements never produce better scores.
package scoring
