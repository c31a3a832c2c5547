// Package content embeds the default court petitions.
package content

import (
	"embed"

	"github.com/rogersf/court-engine/internal/catalog"
)

//go:embed events/*.json
var Events embed.FS

// Catalog loads the embedded petitions.
func Catalog() (*catalog.Catalog, error) {
	return catalog.LoadFS(Events, "events")
}
