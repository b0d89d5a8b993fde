package storage

type prefixed struct {
	inner  Store
	prefix string
}

// WithPrefix scopes every key of inner under prefix, giving each user of a
// shared backend their own namespace.
func WithPrefix(inner Store, prefix string) Store {
	return &prefixed{inner: inner, prefix: prefix}
}

func (p *prefixed) Read(key string) (string, bool) {
	return p.inner.Read(p.prefix + key)
}

func (p *prefixed) Write(key, value string) error {
	return p.inner.Write(p.prefix+key, value)
}

func (p *prefixed) Subscribe(key string, fn func()) func() {
	return p.inner.Subscribe(p.prefix+key, fn)
}
