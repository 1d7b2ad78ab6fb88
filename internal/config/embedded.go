package config

// Embedded catalog API token injected at build time via ldflags.
// Serves as a default and can be overridden by environment variables
// or the config file.
//
// Build with:
//   go build -ldflags "-X 'github.com/showrunner/showrunner/internal/config.EmbeddedCatalogToken=xxx'"
var EmbeddedCatalogToken string
