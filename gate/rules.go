package gate

import (
	"context"
	"strconv"

	"github.com/mapleaiorg/wll/canon"
	"github.com/mapleaiorg/wll/model"
)

// RequireIntent fails any proposal whose effective intent (Intent, falling
// back to Message) is empty.
type RequireIntent struct{}

func (RequireIntent) Descriptor() canon.RuleDescriptor {
	return canon.RuleDescriptor{Name: "RequireIntent"}
}

func (RequireIntent) Evaluate(_ context.Context, proposal model.CommitmentProposal, _ Context) RuleOutcome {
	if proposal.EffectiveIntent() == "" {
		return failOutcome("effective intent is empty")
	}
	return passOutcome()
}

// RequireEvidence fails a proposal whose class is in Classes and whose
// evidence bundle carries no URIs. Proposals of any other class are
// skipped.
type RequireEvidence struct {
	Classes []model.CommitmentClass
}

func (r RequireEvidence) Descriptor() canon.RuleDescriptor {
	params := make([]string, len(r.Classes))
	for i, c := range r.Classes {
		params[i] = c.String()
	}
	return canon.RuleDescriptor{Name: "RequireEvidence", Params: params}
}

func (r RequireEvidence) Evaluate(_ context.Context, proposal model.CommitmentProposal, _ Context) RuleOutcome {
	applies := false
	for _, c := range r.Classes {
		if c.Equal(proposal.Class) {
			applies = true
			break
		}
	}
	if !applies {
		return skipOutcome()
	}
	if proposal.Evidence.Empty() {
		return failOutcome("class %s requires a non-empty evidence bundle", proposal.Class)
	}
	return passOutcome()
}

// MaxSizeLimit fails a proposal whose tree's transitive size (resolved via
// Context.TreeSize) exceeds MaxBytes. A proposal with no Tree is treated as
// size zero and always passes.
type MaxSizeLimit struct {
	MaxBytes int64
}

func (m MaxSizeLimit) Descriptor() canon.RuleDescriptor {
	return canon.RuleDescriptor{Name: "MaxSizeLimit", Params: []string{strconv.FormatInt(m.MaxBytes, 10)}}
}

func (m MaxSizeLimit) Evaluate(_ context.Context, proposal model.CommitmentProposal, gctx Context) RuleOutcome {
	if proposal.Tree == nil {
		return passOutcome()
	}
	if gctx.TreeSize == nil {
		return passOutcome()
	}
	size, err := gctx.TreeSize(*proposal.Tree)
	if err != nil {
		return failOutcome("resolve tree size: %v", err)
	}
	if size > m.MaxBytes {
		return failOutcome("tree size %d exceeds limit %d", size, m.MaxBytes)
	}
	return passOutcome()
}

// AllowedClasses fails a proposal whose class is not in the configured set.
type AllowedClasses struct {
	Allowed []model.CommitmentClass
}

func (a AllowedClasses) Descriptor() canon.RuleDescriptor {
	params := make([]string, len(a.Allowed))
	for i, c := range a.Allowed {
		params[i] = c.String()
	}
	return canon.RuleDescriptor{Name: "AllowedClasses", Params: params}
}

func (a AllowedClasses) Evaluate(_ context.Context, proposal model.CommitmentProposal, _ Context) RuleOutcome {
	for _, c := range a.Allowed {
		if c.Equal(proposal.Class) {
			return passOutcome()
		}
	}
	return failOutcome("class %s is not in the allowed set", proposal.Class)
}
