package transliterate

import (
	"context"
	"strings"
	"unicode"

	"github.com/MrSnakeDoc/wander/internal/domain"
	"github.com/MrSnakeDoc/wander/internal/logger"
)

// Converter converts text to a fixed target script.
type Converter interface {
	Converter() string
	Convert(ctx context.Context, text string) (string, error)
}

// Normalizer maps text to its canonical script, caching per exact input.
// Failures are tolerated: the original text is returned and nothing is cached.
type Normalizer struct {
	conv  Converter
	cache Cache
	log   logger.Logger
}

func NewNormalizer(conv Converter, cache Cache, log logger.Logger) *Normalizer {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Normalizer{conv: conv, cache: cache, log: log}
}

// Normalize returns text in the canonical script, or text itself when the
// conversion fails.
func (n *Normalizer) Normalize(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" || !hasHan(text) {
		return text
	}

	name := n.conv.Converter()
	if out, ok, err := n.cache.Get(ctx, name, text); err != nil {
		n.log.Warn("transliteration cache read failed", logger.Error(err))
	} else if ok {
		return out
	}

	out, err := n.conv.Convert(ctx, text)
	if err != nil {
		n.log.Warn("transliteration failed, using original text",
			logger.Int("length", len(text)),
			logger.Error(err))
		return text
	}

	if err := n.cache.Set(ctx, name, text, out); err != nil {
		n.log.Warn("transliteration cache write failed", logger.Error(err))
	}
	return out
}

// Key returns the normalized and folded form used for substring matching.
func (n *Normalizer) Key(ctx context.Context, text string) string {
	return domain.Fold(n.Normalize(ctx, text))
}

// hasHan reports whether s carries at least one CJK ideograph.
// Text without any has nothing to convert.
func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
