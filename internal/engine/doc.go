// Package engine owns the native speech-to-text inference context.
// It provides a closed set of transcription backends (whisper.cpp via Go
// bindings, or an external whisper-cli process) behind one interface, and
// an Adapter that serializes every call to the single stateful context,
// health-checks it, and recovers it when it is corrupted.
package engine
