// Package entities registers every import catalogue with the importer
// registry. Import this package for its side effects; each entity file
// registers itself from init().
package entities
