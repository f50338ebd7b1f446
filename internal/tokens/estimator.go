// Package tokens estimates the token footprint of a prompt so the router
// can size the output budget. Known model families get exact tiktoken
// counts; everything else falls back to a character heuristic.
package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// charsPerToken is the fallback heuristic: English prose averages roughly
// four characters per token.
const charsPerToken = 4

// Estimator counts prompt tokens. Codecs are cached per encoding.
type Estimator struct {
	mu     sync.RWMutex
	codecs map[tokenizer.Encoding]tokenizer.Codec
}

// NewEstimator creates an Estimator with an empty codec cache.
func NewEstimator() *Estimator {
	return &Estimator{codecs: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

// Estimate returns the token count of text for the given model, falling
// back to the character heuristic when no tokenizer is available.
func (e *Estimator) Estimate(text, model string) int {
	if text == "" {
		return 0
	}
	codec, err := e.codec(model)
	if err != nil {
		return heuristic(text)
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return heuristic(text)
	}
	return len(ids)
}

func (e *Estimator) codec(model string) (tokenizer.Codec, error) {
	encoding := encodingFor(model)

	e.mu.RLock()
	cached, ok := e.codecs[encoding]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.codecs[encoding] = codec
	e.mu.Unlock()
	return codec, nil
}

// encodingFor maps model names to tiktoken encodings. Modern OpenAI
// families use o200k_base; older GPT-4/3.5 use cl100k_base, which is also
// the closest approximation for non-OpenAI models.
func encodingFor(model string) tokenizer.Encoding {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gpt-4o"),
		strings.HasPrefix(model, "gpt-4.1"),
		strings.HasPrefix(model, "gpt-5"),
		strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"),
		strings.HasPrefix(model, "o4"):
		return tokenizer.O200kBase
	default:
		return tokenizer.Cl100kBase
	}
}

func heuristic(text string) int {
	n := (len(text) + charsPerToken - 1) / charsPerToken
	if n < 1 {
		n = 1
	}
	return n
}
