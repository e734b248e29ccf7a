package postprocessors

import (
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/postprocessors/chunker"
	"github.com/custodia-labs/gdprqa/internal/postprocessors/emptyfilter"
)

// RegisterDefaults adds the hybrid chunker, which counts with tokenizer,
// and the empty chunk filter.
func RegisterDefaults(r *Registry, tokenizer driven.Tokenizer) {
	r.Register(chunker.Name, func(cfg map[string]any) (driven.PostProcessor, error) {
		return chunker.New(tokenizer, chunkerOptions(cfg)...), nil
	})
	r.Register(emptyfilter.Name, func(map[string]any) (driven.PostProcessor, error) {
		return emptyfilter.New(), nil
	})
}

// chunkerOptions reads max_tokens and merge_peers. Absent or mistyped
// keys keep the chunker's defaults.
func chunkerOptions(cfg map[string]any) []chunker.Option {
	var opts []chunker.Option
	if n, ok := number(cfg["max_tokens"]); ok && n > 0 {
		opts = append(opts, chunker.WithMaxTokens(n))
	}
	if merge, ok := cfg["merge_peers"].(bool); ok {
		opts = append(opts, chunker.WithMergePeers(merge))
	}
	return opts
}

// number accepts the integer shapes TOML and JSON decoders produce.
func number(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
