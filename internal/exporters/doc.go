// Package exporters writes contacts to files for download.
package exporters
