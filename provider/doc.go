// Package provider abstracts external AI vendors behind one capability.
//
// A Provider accepts a Request built by the AI Model executor and returns
// the vendor's text or image response. Two HTTP client families are
// included: an OpenAI-compatible client (chat completions and image
// generation) and an Anthropic-style client (messages API with x-api-key
// auth). Credentials are resolved per call, with a context override taking
// precedence over the configured key so stored per-user keys can be
// injected without rebuilding providers.
//
// Providers are read-only after construction and safe for concurrent use
// across modules and runs.
package provider
