package cache

// ScopedKeyer prefixes every key from an inner Keyer, isolating cache
// namespaces when one backend serves multiple projects.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer falls
// back to the default one.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) LayerKey(project, layer, focusID string) string {
	return k.prefix + k.inner.LayerKey(project, layer, focusID)
}

func (k *ScopedKeyer) FilesKey(project, modulePath string) string {
	return k.prefix + k.inner.FilesKey(project, modulePath)
}

func (k *ScopedKeyer) AnnotationKey(project, filePath string) string {
	return k.prefix + k.inner.AnnotationKey(project, filePath)
}

var _ Keyer = (*ScopedKeyer)(nil)
