// Package adapters provides the text-generation provider interface and the
// HTTP clients behind the content fallback chain.
//
// Subpackages:
//   - gemini
//   - cohere
//   - huggingface
package adapters
