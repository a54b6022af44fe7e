// Package llm provides chat-completion clients for the model providers
// Corral agents run against.
//
// # Overview
//
// A ChatClient takes a system prompt, a user input and per-call Options and
// returns the model's text plus token accounting. Three providers are
// supported:
//
//   - OpenAI (api.openai.com)
//   - Azure AI Foundry (OpenAI-compatible deployments)
//   - Anthropic (Claude Messages API)
//
// NewChatClient selects the provider from a ProviderConfig and wraps it in a
// circuit breaker so repeated provider failures fail fast instead of holding
// worker slots.
//
// # Token Accounting
//
// Providers normally report usage; when a gateway strips it, EstimateTokens
// approximates counts from text length and EstimateCost converts counts to a
// USD figure at flat per-1k-token rates.
package llm
