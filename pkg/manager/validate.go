package manager

import (
	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/types"
)

func validateAgent(agent *types.Agent) error {
	if agent == nil {
		return errdefs.Validationf("agent must not be nil")
	}
	if agent.Name == "" {
		return errdefs.Validationf("agent name must not be empty")
	}
	if agent.Instructions == "" {
		return errdefs.Validationf("agent instructions must not be empty")
	}
	model, _ := agent.ModelProfile["model"].(string)
	if model == "" {
		return errdefs.Validationf("agent model profile must name a model")
	}
	seen := make(map[string]struct{}, len(agent.Tools))
	for _, tool := range agent.Tools {
		if _, dup := seen[tool]; dup {
			return errdefs.Validationf("agent tool %q listed more than once", tool)
		}
		seen[tool] = struct{}{}
	}
	if err := validateConnector("input", agent.Input); err != nil {
		return err
	}
	if err := validateConnector("output", agent.Output); err != nil {
		return err
	}
	if agent.Budget != nil {
		if agent.Budget.MaxTokens < 0 || agent.Budget.MaxDurationSeconds < 0 || agent.Budget.MaxUSD < 0 {
			return errdefs.Validationf("agent budget values must not be negative")
		}
	}
	return nil
}

func validateConnector(role string, cfg *types.ConnectorConfig) error {
	if cfg == nil {
		return nil
	}
	if !types.ValidConnectorType(cfg.Type) {
		return errdefs.Validationf("unknown %s connector type %q", role, cfg.Type)
	}
	return nil
}

func validateDeployment(deployment *types.Deployment) error {
	if deployment == nil {
		return errdefs.Validationf("deployment must not be nil")
	}
	if deployment.AgentID == "" {
		return errdefs.Validationf("deployment agent id must not be empty")
	}
	if err := types.ValidateVersion(deployment.Version); err != nil {
		return err
	}
	if deployment.Target != nil && deployment.Target.Replicas < 1 {
		return errdefs.Validationf("deployment replicas must be at least 1")
	}
	return nil
}
