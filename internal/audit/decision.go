package audit

import (
	"fmt"

	"github.com/mglowin/stackwarden/internal/probe"
)

// Decision is the outcome of one audit cycle's policy evaluation. It is
// computed fresh each cycle and never persisted.
type Decision struct {
	RestartNeeded  bool
	Reasons        []string
	BlockingIssues []string
}

// Policy decides whether the application tier gets restarted, given its
// probe findings. The foundation gate is not part of the policy: a broken
// foundation always aborts the cycle before any policy runs.
type Policy func(appResults []probe.Result) Decision

// PreventivePolicy restarts the application tier on every cycle that reaches
// it, healthy or not. A clean bill of health only changes the recorded
// reason. The point is to shed slowly accumulated resource usage on a
// schedule rather than waiting for visible degradation.
func PreventivePolicy(appResults []probe.Result) Decision {
	decision := Decision{RestartNeeded: true}
	for _, result := range appResults {
		if !result.OK {
			decision.Reasons = append(decision.Reasons, fmt.Sprintf("%s unhealthy: %s", result.Service, result.Detail))
		}
	}
	if len(decision.Reasons) == 0 {
		decision.Reasons = []string{"preventive restart, routine maintenance"}
	}
	return decision
}

// OnFailurePolicy restarts only when an application-tier issue was found.
func OnFailurePolicy(appResults []probe.Result) Decision {
	var decision Decision
	for _, result := range appResults {
		if !result.OK {
			decision.RestartNeeded = true
			decision.Reasons = append(decision.Reasons, fmt.Sprintf("%s unhealthy: %s", result.Service, result.Detail))
		}
	}
	return decision
}
