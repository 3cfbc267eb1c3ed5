package restserver

import (
	"embed"
	"io/fs"
	"os"
)

// Embed the REST server assets
//
//go:embed all:assets
var assetsFS embed.FS

// GetAssets returns the assets filesystem, either from disk or embedded
func GetAssets() fs.FS {
	// If the FORECASTVIEW_ASSETS_DIR environment variable points to a valid
	// directory, serve assets straight from disk so template and CSS
	// changes show up without a rebuild.
	if dir := os.Getenv("FORECASTVIEW_ASSETS_DIR"); dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}

	// Return a sub-filesystem starting from the "assets" directory
	assets, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic("failed to create assets sub-filesystem: " + err.Error())
	}
	return assets
}
