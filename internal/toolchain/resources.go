package toolchain

import (
	"os"
	"path/filepath"
)

// ResourceDirEnv overrides the bundle root, mainly for packaged builds and tests.
const ResourceDirEnv = "TRANSCRIBER_RESOURCES"

// BundledModelName is the model directory shipped inside the bundle.
const BundledModelName = "whisper-large-v3"

// ResourceDir returns the directory bundled resources live in: next to the
// executable, or the macOS bundle's Resources folder when present.
func ResourceDir() string {
	if dir := os.Getenv(ResourceDirEnv); dir != "" {
		return dir
	}

	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	dir := filepath.Dir(exe)
	macResources := filepath.Join(filepath.Dir(dir), "Resources")
	if info, err := os.Stat(macResources); err == nil && info.IsDir() {
		return macResources
	}
	return dir
}

// ResourcePath joins a relative path onto the bundle root.
func ResourcePath(relative ...string) string {
	return filepath.Join(append([]string{ResourceDir()}, relative...)...)
}

// BundledModelDir returns the model directory shipped with the app and
// whether it exists.
func BundledModelDir() (string, bool) {
	dir := ResourcePath("Models", BundledModelName)
	info, err := os.Stat(dir)
	return dir, err == nil && info.IsDir()
}
