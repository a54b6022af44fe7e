package llm

// Pricing used when a provider reports usage but no cost. Flat per-1k-token
// rates, close enough for budget enforcement and reporting.
const (
	costPerThousandIn  = 0.03
	costPerThousandOut = 0.06

	// approxCharsPerToken backs the token estimate used when a provider
	// omits usage entirely.
	approxCharsPerToken = 4
)

// EstimateTokens approximates the token count of s by character length.
func EstimateTokens(s string) int64 {
	if len(s) == 0 {
		return 0
	}
	return int64((len(s) + approxCharsPerToken - 1) / approxCharsPerToken)
}

// EstimateCost returns the USD cost of an invocation from its token counts.
func EstimateCost(tokensIn, tokensOut int64) float64 {
	return float64(tokensIn)/1000*costPerThousandIn +
		float64(tokensOut)/1000*costPerThousandOut
}
