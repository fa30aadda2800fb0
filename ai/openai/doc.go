// Package openai implements the ai interfaces against OpenAI-compatible
// embedding APIs (OpenAI itself, Ollama's /v1 endpoint, LocalAI, vLLM).
package openai
