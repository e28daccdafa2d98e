package main

import (
	"os"
	"path/filepath"
	"strings"
)

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func expandDirectory(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var imageFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if isImageFile(path) {
			imageFiles = append(imageFiles, path)
		}
	}

	return imageFiles, nil
}

func isImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jpg" || ext == ".jpeg" || ext == ".png" ||
		ext == ".tif" || ext == ".tiff" || ext == ".bmp"
}

// outputPath picks where a cropped still goes: over the original, into
// outputDir (relative paths resolve next to the input's parent directory),
// or beside the input with a _cropped suffix.
func outputPath(filename, outputDir string, overwrite bool) string {
	switch {
	case overwrite:
		return filename
	case outputDir != "":
		dir := outputDir
		if !filepath.IsAbs(outputDir) {
			dir = filepath.Join(filepath.Dir(filepath.Dir(filename)), outputDir)
		}
		return filepath.Join(dir, filepath.Base(filename))
	default:
		ext := filepath.Ext(filename)
		return strings.TrimSuffix(filename, ext) + "_cropped" + ext
	}
}

// analysisPath is the annotated debug image for filename.
func analysisPath(filename, debugDir string) string {
	name := filepath.Base(filename) + "-analysis.jpg"
	if debugDir == "" {
		return filepath.Join(filepath.Dir(filename), name)
	}
	return filepath.Join(debugDir, name)
}
