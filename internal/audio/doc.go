// Package audio handles decoded PCM buffers, WAV decoding/encoding,
// splitting long audio into bounded overlapping segments, and classifying
// segment content (silent, constant noise, viable) before transcription.
package audio
