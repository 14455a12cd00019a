package redis

const (
	// KeyPrefixSession is the prefix for persisted session keys
	KeyPrefixSession = "wander:session:"
	// KeyPrefixTranslit is the prefix for cached transliterations
	KeyPrefixTranslit = "wander:translit:"
)

// SessionKey returns the Redis key of a persisted session
func SessionKey(name string) string {
	return KeyPrefixSession + name
}

// TranslitKey returns the Redis key of a cached conversion of text to converter
func TranslitKey(converter, text string) string {
	return KeyPrefixTranslit + converter + ":" + text
}
