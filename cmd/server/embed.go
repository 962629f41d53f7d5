//go:build embed
// +build embed

package main

import (
	"embed"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Adams521/everything-gift/internal/logging"
)

//go:embed web/dist
var webDist embed.FS

// setupStaticFiles configures the static file serving with embedded frontend
func setupStaticFiles(router *gin.Engine) {
	logging.Info().Msg("Using embedded frontend assets")

	// Get the sub-filesystem for dist directory
	distFS, err := fs.Sub(webDist, "web/dist")
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to get dist subdirectory")
	}

	// Serve static files from embedded FS
	router.NoRoute(func(c *gin.Context) {
		urlPath := c.Request.URL.Path

		if strings.HasPrefix(urlPath, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}

		// index.html is served by the SPA fallback below
		cleanPath := strings.TrimPrefix(path.Clean(urlPath), "/")
		if cleanPath != "" && cleanPath != "index.html" {
			if stat, err := fs.Stat(distFS, cleanPath); err == nil && !stat.IsDir() {
				c.FileFromFS(cleanPath, http.FS(distFS))
				return
			}
		}

		// File not found, serve index.html for SPA routing
		indexFile, err := distFS.Open("index.html")
		if err != nil {
			c.String(http.StatusNotFound, "404 page not found")
			return
		}
		defer indexFile.Close()

		content, err := io.ReadAll(indexFile)
		if err != nil {
			c.String(http.StatusInternalServerError, "Error reading index.html")
			return
		}

		c.Data(http.StatusOK, "text/html; charset=utf-8", content)
	})
}
