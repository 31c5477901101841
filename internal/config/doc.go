// Package config provides configuration structures and utilities for stacwalk.
// It defines the main configuration options for catalog extraction,
// crawl settings, and report generation preferences.
package config
