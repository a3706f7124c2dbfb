package cache

// ScopedKeyer wraps a Keyer with a prefix. Servers sharing one Redis
// instance use it to keep their entries apart:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "storyflow:staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ReportKey generates a prefixed key for report caching.
func (k *ScopedKeyer) ReportKey(storyHash, kind string, opts ReportKeyOpts) string {
	return k.prefix + k.inner.ReportKey(storyHash, kind, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(storyHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(storyHash, opts)
}
