package endgame

import (
	"fmt"

	"github.com/yourusername/bearoffsim/pkg/dice"
)

// PolicyInfo describes a registered policy.
type PolicyInfo struct {
	Name          string `json:"name"`
	Label         string `json:"label"`
	Description   string `json:"description"`
	Deterministic bool   `json:"deterministic"`
	Lenient       bool   `json:"lenient,omitempty"` // Games use lenient move mode
}

var registry = []PolicyInfo{
	{
		Name:        "random",
		Label:       "Random Policy",
		Description: "move from a uniformly chosen occupied point",
	},
	{
		Name:          "furthest-first",
		Label:         "Furthest Pieces First Policy",
		Description:   "move from the occupied point furthest from the exit",
		Deterministic: true,
	},
	{
		Name:          "pip-matching",
		Label:         "Pip Matching Policy",
		Description:   "bear off with an exact roll when possible, else move the furthest checker",
		Deterministic: true,
	},
	{
		Name:          "pip-matching-legacy",
		Label:         "Pip Matching Policy (legacy)",
		Description:   "first published pip-matching rules, including the stale second fallback",
		Deterministic: true,
		Lenient:       true,
	},
}

// DefaultPolicies lists the policies compared by a standard run, in report
// order.
var DefaultPolicies = []string{"random", "furthest-first", "pip-matching"}

// Policies returns the registered policies.
func Policies() []PolicyInfo {
	out := make([]PolicyInfo, len(registry))
	copy(out, registry)
	return out
}

// PolicyByName returns the registration of the named policy without
// building it.
func PolicyByName(name string) (PolicyInfo, error) {
	for _, info := range registry {
		if info.Name == name {
			return info, nil
		}
	}
	return PolicyInfo{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// LookupPolicy builds the named policy. src feeds policies that make random
// choices and may be nil for the others.
func LookupPolicy(name string, src dice.Source) (Policy, PolicyInfo, error) {
	info, err := PolicyByName(name)
	if err != nil {
		return nil, PolicyInfo{}, err
	}
	switch name {
	case "random":
		if src == nil {
			return nil, info, fmt.Errorf("%w: policy %q needs a random source", ErrConfiguration, name)
		}
		return NewRandomPolicy(src), info, nil
	case "furthest-first":
		return FurthestFirst{}, info, nil
	case "pip-matching":
		return PipMatching{}, info, nil
	case "pip-matching-legacy":
		return PipMatchingLegacy{}, info, nil
	}
	return nil, info, fmt.Errorf("%w: policy %q has no constructor", ErrConfiguration, name)
}
