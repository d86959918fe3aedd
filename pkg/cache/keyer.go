package cache

import "fmt"

// Keyer builds cache keys for rendered artifacts.
type Keyer interface {
	// ArtifactKey returns the key for the vector output of source rendered
	// by the named backend.
	ArtifactKey(backend, source string) string

	// ExportKey returns the key for a raster export of an already rendered
	// vector artifact.
	ExportKey(svgHash, format string) string
}

// DefaultKeyer produces keys of the form "kind:backend:hash".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey hashes the backend and the source together so that two
// backends never share an entry.
func (DefaultKeyer) ArtifactKey(backend, source string) string {
	return hashKey("artifact:"+backend, source)
}

// ExportKey returns the key for a PNG or PDF export.
func (DefaultKeyer) ExportKey(svgHash, format string) string {
	return fmt.Sprintf("export:%s:%s", format, svgHash)
}
