// Package toolchain locates the external audio executables the transcriber
// depends on.
//
// Resolution never mutates the process PATH. Callers receive a Toolchain value
// holding absolute executable paths and pass it explicitly to the duration
// estimator and the transcription pipeline.
//
// Lookup order for ffmpeg:
//   - an explicit override from settings
//   - a system install found on PATH
//   - a copy bundled next to the application under bin/
//
// ffprobe is optional. It is searched next to the resolved ffmpeg first, then
// on PATH, then in the bundle.
package toolchain
