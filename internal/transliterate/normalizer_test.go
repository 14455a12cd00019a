package transliterate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/wander/internal/logger"
)

type fakeConverter struct {
	table map[string]string
	fail  bool
	calls int
}

func (f *fakeConverter) Converter() string { return "Traditional" }

func (f *fakeConverter) Convert(_ context.Context, text string) (string, error) {
	f.calls++
	if f.fail {
		return "", errors.New("service down")
	}
	if out, ok := f.table[text]; ok {
		return out, nil
	}
	return text, nil
}

func TestNormalizeCachesPerExactInput(t *testing.T) {
	conv := &fakeConverter{table: map[string]string{"故宫": "故宮"}}
	cache := NewMemoryCache()
	n := NewNormalizer(conv, cache, logger.NewNop())

	assert.Equal(t, "故宮", n.Normalize(context.Background(), "故宫"))
	assert.Equal(t, "故宮", n.Normalize(context.Background(), "故宫"))
	assert.Equal(t, 1, conv.calls)

	n.Normalize(context.Background(), "故宫 ")
	assert.Equal(t, 2, conv.calls, "inputs differing by whitespace are distinct keys")
	assert.Equal(t, 2, cache.Len())
}

func TestNormalizeFallsBackWithoutCachingFailures(t *testing.T) {
	conv := &fakeConverter{fail: true}
	cache := NewMemoryCache()
	n := NewNormalizer(conv, cache, logger.NewNop())

	assert.Equal(t, "故宫", n.Normalize(context.Background(), "故宫"))
	assert.Equal(t, 0, cache.Len())

	conv.fail = false
	conv.table = map[string]string{"故宫": "故宮"}
	assert.Equal(t, "故宮", n.Normalize(context.Background(), "故宫"))
	assert.Equal(t, 2, conv.calls)
}

func TestNormalizeSkipsTextWithoutIdeographs(t *testing.T) {
	conv := &fakeConverter{}
	n := NewNormalizer(conv, nil, nil)

	assert.Equal(t, "Great Wall", n.Normalize(context.Background(), "Great Wall"))
	assert.Equal(t, "  ", n.Normalize(context.Background(), "  "))
	assert.Zero(t, conv.calls)
}

func TestKeyFoldsNormalizedText(t *testing.T) {
	conv := &fakeConverter{table: map[string]string{"长城 WALL": "長城 WALL"}}
	n := NewNormalizer(conv, nil, nil)

	assert.Equal(t, "長城 wall", n.Key(context.Background(), "长城 WALL"))
}
