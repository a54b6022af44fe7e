package main

import (
	"context"
	"fmt"
	"os"

	"github.com/corral-dev/corral/pkg/executor"
	"github.com/corral-dev/corral/pkg/llm"
)

// corral-executor is the sandbox child process. It reads one invocation
// request from stdin, calls the model provider and writes one response
// line to stdout. The worker spawns it per invocation and kills the whole
// process group on overrun, so there is no cleanup to get right here.
func main() {
	client, err := llm.NewChatClient(llm.ProviderConfig{
		Provider: os.Getenv("CORRAL_LLM_PROVIDER"),
		APIKey:   os.Getenv("CORRAL_LLM_API_KEY"),
		Endpoint: os.Getenv("CORRAL_LLM_ENDPOINT"),
		APIVer:   os.Getenv("CORRAL_LLM_API_VERSION"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "provider setup: %v\n", err)
		os.Exit(1)
	}

	if err := executor.RunChild(context.Background(), os.Stdin, os.Stdout, client); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
