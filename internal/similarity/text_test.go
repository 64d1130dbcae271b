package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_LowercasesAndDropsStopwords(t *testing.T) {
	tokens := Tokenize("The Quick Brown Fox and the Lazy Dog", NormalizeOptions{})
	assert.Equal(t, []string{"quick", "brown", "fox", "lazy", "dog"}, tokens)
}

func TestTokenize_StripsPunctuationAndDigits(t *testing.T) {
	tokens := Tokenize("Hello, World! 123 go-lang.", NormalizeOptions{})
	assert.Equal(t, []string{"hello", "world", "go", "lang"}, tokens)
}

func TestTokenize_EmptyInputYieldsNoTokens(t *testing.T) {
	assert.Nil(t, Tokenize("   ", NormalizeOptions{}))
	assert.Nil(t, Tokenize("123 456", NormalizeOptions{}))
}

func TestTokenize_StripDiacriticsNormalizesAccents(t *testing.T) {
	tokens := Tokenize("café naïve", NormalizeOptions{StripDiacritics: true})
	assert.Equal(t, []string{"cafe", "naive"}, tokens)
}
