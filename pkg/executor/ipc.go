package executor

// Request is the work order the parent writes to the child's stdin as a
// single JSON document.
type Request struct {
	AgentID            string         `json:"agentId"`
	Version            string         `json:"version"`
	Name               string         `json:"name"`
	Instructions       string         `json:"instructions"`
	Input              string         `json:"input"`
	MaxTokens          int            `json:"maxTokens"`
	MaxDurationSeconds int            `json:"maxDurationSeconds"`
	ModelProfile       map[string]any `json:"modelProfile,omitempty"`
}

// Response is the single JSON line the child writes to stdout before
// exiting. The child reports its own failures here with Success=false;
// anything else (no output, malformed output, a killed process) is the
// parent's to classify.
type Response struct {
	Success    bool    `json:"success"`
	Output     string  `json:"output,omitempty"`
	Error      string  `json:"error,omitempty"`
	TokensIn   int64   `json:"tokensIn"`
	TokensOut  int64   `json:"tokensOut"`
	DurationMs int64   `json:"durationMs"`
	USDCost    float64 `json:"usdCost"`
}
