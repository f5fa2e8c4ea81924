package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/photo-pages/internal/layout"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database   DatabaseConfig
	SQLite     SQLiteConfig
	PhotoPrism PhotoPrismConfig
	Photos     PhotosConfig
	Export     ExportConfig
	Layout     LayoutDefaults
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL; empty selects the SQLite store
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PhotoPrismConfig struct {
	DatabaseURL   string // MariaDB DSN for direct database access (e.g., photoprism:photoprism@tcp(mariadb:3306)/photoprism)
	OriginalsPath string // directory PhotoPrism keeps originals in, prefixed to file names on import
	MaxOpenConns  int    // Maximum open catalog connections (default 5)
	MaxIdleConns  int    // Maximum idle catalog connections (default 2)
}

type PhotosConfig struct {
	Root string // base directory for relative photo paths
}

type ExportConfig struct {
	Dir         string `yaml:"dir"`
	JPEGQuality int    `yaml:"jpeg_quality"`
}

// LayoutDefaults are the settings a new project starts with.
type LayoutDefaults struct {
	ImagesPerPage int    `yaml:"images_per_page"`
	SortAscending bool   `yaml:"sort_ascending"`
	FrameEnabled  bool   `yaml:"frame_enabled"`
	FrameStyle    string `yaml:"frame_style"`
	FrameColor    string `yaml:"frame_color"`
	TitlePolicy   string `yaml:"title_policy"`
}

// LayoutConfig converts the defaults into a validated layout configuration.
func (d LayoutDefaults) LayoutConfig() (layout.Config, error) {
	style, err := layout.ParseFrameStyle(d.FrameStyle)
	if err != nil {
		return layout.Config{}, fmt.Errorf("layout defaults: %w", err)
	}
	policy, err := layout.ParseTitlePolicy(d.TitlePolicy)
	if err != nil {
		return layout.Config{}, fmt.Errorf("layout defaults: %w", err)
	}
	cfg := layout.Config{
		ImagesPerPage: d.ImagesPerPage,
		SortAscending: d.SortAscending,
		FrameEnabled:  d.FrameEnabled,
		FrameStyle:    style,
		FrameColorHex: d.FrameColor,
		TitlePolicy:   policy,
	}
	if err := cfg.Validate(); err != nil {
		return layout.Config{}, fmt.Errorf("layout defaults: %w", err)
	}
	return cfg, nil
}

type fileDefaults struct {
	Layout LayoutDefaults `yaml:"layout"`
	Export ExportConfig   `yaml:"export"`
	SQLite SQLiteConfig   `yaml:"sqlite"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString returns the environment variable or the default when unset.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var defaults fileDefaults
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	layoutDefaults := defaults.Layout
	layoutDefaults.ImagesPerPage = envInt("LAYOUT_IMAGES_PER_PAGE", layoutDefaults.ImagesPerPage)
	layoutDefaults.TitlePolicy = envString("LAYOUT_TITLE_POLICY", layoutDefaults.TitlePolicy)

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		SQLite: SQLiteConfig{
			Path: envString("SQLITE_PATH", defaults.SQLite.Path),
		},
		PhotoPrism: PhotoPrismConfig{
			DatabaseURL:   os.Getenv("PHOTOPRISM_DATABASE_URL"),
			OriginalsPath: os.Getenv("PHOTOPRISM_ORIGINALS_PATH"),
			MaxOpenConns:  envInt("PHOTOPRISM_DATABASE_MAX_OPEN_CONNS", 5),
			MaxIdleConns:  envInt("PHOTOPRISM_DATABASE_MAX_IDLE_CONNS", 2),
		},
		Photos: PhotosConfig{
			Root: os.Getenv("PHOTO_ROOT"),
		},
		Export: ExportConfig{
			Dir:         envString("EXPORT_DIR", defaults.Export.Dir),
			JPEGQuality: envInt("EXPORT_JPEG_QUALITY", defaults.Export.JPEGQuality),
		},
		Layout: layoutDefaults,
	}
}
