// Package file provides a TOML file-based implementation of the
// ConfigStore port. Keys are flattened to dot notation on load, so
// nested tables read as "search.rrf_constant".
package file
