package provision

import (
	"os"
	"path/filepath"
	"strings"

	"audio-transcriber/internal/domain"
)

const hfBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// DefaultModelID is fetched when no model is named.
const DefaultModelID = "large-v3"

var catalog = []domain.ModelOption{
	{ID: "tiny", Name: "Tiny", FileName: "ggml-tiny.bin", SizeLabel: "~75 MB", Description: "Fastest multilingual model."},
	{ID: "base.en", Name: "Base (English)", FileName: "ggml-base.en.bin", SizeLabel: "~142 MB", Description: "Balanced speed and quality, English only."},
	{ID: "base", Name: "Base", FileName: "ggml-base.bin", SizeLabel: "~142 MB", Description: "Balanced multilingual model."},
	{ID: "small", Name: "Small", FileName: "ggml-small.bin", SizeLabel: "~466 MB", Description: "Higher quality multilingual model."},
	{ID: "medium", Name: "Medium", FileName: "ggml-medium.bin", SizeLabel: "~1.5 GB", Description: "High quality multilingual model."},
	{ID: "large-v3", Name: "Large v3", FileName: "ggml-large-v3.bin", SizeLabel: "~2.9 GB", Description: "Most accurate model. Slow on CPU."},
	{ID: "large-v3-turbo", Name: "Large v3 Turbo", FileName: "ggml-large-v3-turbo.bin", SizeLabel: "~1.6 GB", Description: "Pruned large-v3 decoder, much faster."},
}

// Catalog returns a copy of the downloadable models.
func Catalog() []domain.ModelOption {
	models := make([]domain.ModelOption, len(catalog))
	for i, m := range catalog {
		m.URL = hfBase + m.FileName
		models[i] = m
	}
	return models
}

// Lookup finds a catalog entry by ID.
func Lookup(id string) (domain.ModelOption, bool) {
	id = strings.TrimSpace(id)
	for _, m := range Catalog() {
		if m.ID == id {
			return m, true
		}
	}
	return domain.ModelOption{}, false
}

// MarkDownloaded sets Downloaded and LocalPath for models present in any of dirs.
func MarkDownloaded(models []domain.ModelOption, dirs []string) {
	for i := range models {
		for _, dir := range dirs {
			if strings.TrimSpace(dir) == "" {
				continue
			}
			candidate := filepath.Join(dir, models[i].FileName)
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			models[i].Downloaded = true
			models[i].LocalPath = candidate
			break
		}
	}
}
