// Package gate implements the commitment boundary (C4): the single point
// of entry for proposals. A Gate holds an ordered policy pipeline of
// PolicyRule values and reduces a CommitmentProposal to a model.Decision,
// exactly as spec.md §4.4 describes. The pipeline-of-pure-checks shape
// mirrors the ordered, short-circuiting steps massifs.MassifCommitter's
// CommitContext takes before it will accept a write (etag presence check,
// etag-match vs etag-none-match, then the put itself) generalized here
// into a caller-supplied, named, inspectable list of rules.
package gate

import (
	"context"
	"fmt"

	"github.com/mapleaiorg/wll/canon"
	"github.com/mapleaiorg/wll/internal/logging"
	"github.com/mapleaiorg/wll/model"
	"go.uber.org/zap"
)

// Verdict is the result of evaluating a single rule.
type Verdict uint8

const (
	// Pass means the rule found nothing objectionable.
	Pass Verdict = iota
	// Fail means the rule rejects the proposal; Reason must be set.
	Fail
	// Skip means the rule does not apply to this proposal (e.g. a class
	// filter that only fires for certain classes).
	Skip
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "Pass"
	case Fail:
		return "Fail"
	case Skip:
		return "Skip"
	default:
		return "Unknown"
	}
}

// RuleOutcome is what a PolicyRule returns for one proposal.
type RuleOutcome struct {
	Verdict Verdict
	Reason  string // only meaningful when Verdict == Fail
}

func passOutcome() RuleOutcome { return RuleOutcome{Verdict: Pass} }
func skipOutcome() RuleOutcome { return RuleOutcome{Verdict: Skip} }
func failOutcome(reason string, args ...any) RuleOutcome {
	return RuleOutcome{Verdict: Fail, Reason: fmt.Sprintf(reason, args...)}
}

// Context carries the dependencies a PolicyRule may need beyond the
// proposal itself: none of the built-in rules hold a live reference to the
// object store or a clock, so the gate stays a pure function of
// (pipeline, proposal, Context) and is trivial to unit test.
type Context struct {
	// TreeSize resolves a tree object's transitive byte size, used by
	// MaxSizeLimit. Left nil, MaxSizeLimit cannot resolve any size and
	// passes every proposal, with or without a tree.
	TreeSize func(model.ObjectId) (int64, error)

	// CapabilityToken is the bearer token presented alongside the
	// proposal, checked by CapabilityCheck.
	CapabilityToken string
}

// PolicyRule is a single named check in the pipeline. Descriptor returns
// the stable (name, params) pair fed into policy_hash so the hash binds to
// exactly the configuration that produced a decision.
type PolicyRule interface {
	Descriptor() canon.RuleDescriptor
	Evaluate(ctx context.Context, proposal model.CommitmentProposal, gctx Context) RuleOutcome
}

// Gate evaluates proposals against its configured pipeline.
type Gate struct {
	rules []PolicyRule
	log   *zap.SugaredLogger
}

// New builds a Gate from an ordered rule pipeline. Evaluation order is
// pipeline order; nil log is replaced with the package-global logger
// named "gate" (logging.WithService).
func New(log *zap.SugaredLogger, rules ...PolicyRule) *Gate {
	if log == nil {
		log = logging.WithService("gate")
	}
	return &Gate{rules: rules, log: log}
}

// PolicyHash returns hash_with_domain("POLICY", canonical_serialize(rules))
// for the gate's current configuration.
func (g *Gate) PolicyHash() model.ObjectId {
	descriptors := make([]canon.RuleDescriptor, len(g.rules))
	for i, r := range g.rules {
		descriptors[i] = r.Descriptor()
	}
	return model.ObjectIdFromDigest(canon.HashPipeline(descriptors))
}

// Evaluate runs the pipeline in order, short-circuiting on the first Fail.
// The decision is Accepted iff every rule Passes or Skips.
func (g *Gate) Evaluate(ctx context.Context, proposal model.CommitmentProposal, gctx Context) model.Decision {
	policyHash := g.PolicyHash()

	for _, rule := range g.rules {
		outcome := rule.Evaluate(ctx, proposal, gctx)
		switch outcome.Verdict {
		case Fail:
			desc := rule.Descriptor()
			g.log.Infow("gate rejected proposal",
				"rule", desc.Name,
				"commitment_id", proposal.CommitmentId.String(),
				"reason", outcome.Reason,
			)
			return model.Reject(policyHash, fmt.Sprintf("%s: %s", desc.Name, outcome.Reason))
		case Skip, Pass:
			continue
		}
	}

	g.log.Debugw("gate accepted proposal", "commitment_id", proposal.CommitmentId.String())
	return model.Accept(policyHash)
}
