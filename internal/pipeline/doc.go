// Package pipeline turns a decoded audio buffer into final transcription
// text. It splits long audio into overlapping chunks, filters out silent
// and constant-noise chunks, runs the viable ones through the engine
// adapter sequentially, and merges the per-chunk texts with overlap
// deduplication at the boundaries.
package pipeline
