// Command transcriber runs the desktop app's transcription pipeline from a
// terminal: transcribe a file, probe its duration, fetch a model, list
// models, and check the local toolchain.
package main
