package cache

// scopedKeyer prefixes every key of an inner Keyer. Renders made with a
// different theme or background must never share entries, and several
// editor servers may share one Redis or MongoDB cache.
type scopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns a Keyer that prepends prefix to every key produced
// by inner. A nil inner uses [NewDefaultKeyer].
//
//	k := cache.NewScopedKeyer(nil, "dark/transparent:")
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return scopedKeyer{inner: inner, prefix: prefix}
}

func (k scopedKeyer) ArtifactKey(backend, source string) string {
	return k.prefix + k.inner.ArtifactKey(backend, source)
}

func (k scopedKeyer) ExportKey(svgHash, format string) string {
	return k.prefix + k.inner.ExportKey(svgHash, format)
}
