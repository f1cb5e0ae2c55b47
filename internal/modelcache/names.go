package modelcache

import "strings"

// ParseName splits a model identifier into base name and tag. Ollama model
// names use "base:tag"; a missing tag means "latest".
func ParseName(name string) (base, tag string) {
	base, tag, found := strings.Cut(name, ":")
	if !found || tag == "" {
		tag = "latest"
	}
	return base, tag
}

// Match reports whether a requested model name and an available model name
// refer to the same model: equal base and equal tag. This is the sole
// equality rule used by the pool ("llama3" matches "llama3:latest";
// "llama3:7b" does not match "llama3:13b").
func Match(requested, available string) bool {
	rb, rt := ParseName(requested)
	ab, at := ParseName(available)
	return rb == ab && rt == at
}
