package client

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type wordEncoder struct{}

func (wordEncoder) Encode(text string, _ []string, _ []string) []int {
	return make([]int, len(strings.Fields(text)))
}

func withEncoder(t *testing.T, f func(model string) (tokenEncoder, error)) {
	t.Helper()
	prev := encodingFor
	encodingFor = f
	resetEncoderCache()
	t.Cleanup(func() {
		encodingFor = prev
		resetEncoderCache()
	})
}

func TestEstimateTokens_UsesEncoder(t *testing.T) {
	withEncoder(t, func(string) (tokenEncoder, error) { return wordEncoder{}, nil })
	assert.Equal(t, 3, EstimateTokens("gpt-5", "one two three"))
}

func TestEstimateTokens_FallsBackToCharacterEstimate(t *testing.T) {
	calls := 0
	withEncoder(t, func(string) (tokenEncoder, error) {
		calls++
		return nil, errors.New("offline")
	})

	assert.Equal(t, 3, EstimateTokens("llama3.1", "abcdefghij"))
	assert.Equal(t, 1, EstimateTokens("llama3.1", "ab"))
	assert.Equal(t, 1, calls, "a failed lookup is cached")
	assert.Equal(t, 0, EstimateTokens("llama3.1", ""))
}
