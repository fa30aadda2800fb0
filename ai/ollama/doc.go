// Package ollama implements the ai interfaces against a native Ollama
// server. Prefer ai/openai when the service exposes an OpenAI-compatible
// /v1 endpoint.
package ollama
