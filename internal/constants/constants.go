// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Request limits
const (
	// MaxPhotosPerRequest is the maximum number of photos added in a single request
	MaxPhotosPerRequest = 10000

	// MaxRequestBodySize is the maximum JSON request body size in bytes (10MB)
	MaxRequestBodySize = 10 << 20
)

// Export job constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100

	// FinishedJobRetention is how long finished export jobs stay queryable
	FinishedJobRetention = 30 * time.Minute
)

// Response headers
const (
	// HeaderExportWarnings carries the number of warnings of a streamed export
	HeaderExportWarnings = "X-Export-Warnings"
)
