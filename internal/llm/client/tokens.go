package client

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

type tokenEncoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

// encodingFor resolves a tokenizer for model. Non-OpenAI models use
// cl100k_base as an approximation.
var encodingFor = func(model string) (tokenEncoder, error) {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return enc, nil
	}
	return tiktoken.GetEncoding("cl100k_base")
}

var (
	encoderMu    sync.Mutex
	encoderCache = map[string]tokenEncoder{}
	encoderMiss  = map[string]bool{}
)

// EstimateTokens approximates the token count of text for model. When no
// tokenizer can be loaded it falls back to four characters per token.
func EstimateTokens(model, text string) int {
	if text == "" {
		return 0
	}
	if enc := cachedEncoder(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (len([]rune(text)) + 3) / 4
}

func cachedEncoder(model string) tokenEncoder {
	encoderMu.Lock()
	defer encoderMu.Unlock()
	if enc, ok := encoderCache[model]; ok {
		return enc
	}
	if encoderMiss[model] {
		return nil
	}
	enc, err := encodingFor(model)
	if err != nil || enc == nil {
		encoderMiss[model] = true
		return nil
	}
	encoderCache[model] = enc
	return enc
}

func resetEncoderCache() {
	encoderMu.Lock()
	defer encoderMu.Unlock()
	encoderCache = map[string]tokenEncoder{}
	encoderMiss = map[string]bool{}
}
