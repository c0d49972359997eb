package gate

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/mapleaiorg/wll/canon"
	"github.com/mapleaiorg/wll/model"
	"github.com/stretchr/testify/require"
)

func newProposal(t *testing.T, message string, class model.CommitmentClass) model.CommitmentProposal {
	t.Helper()
	p, err := model.NewProposal(message, model.WorldlineIdFromSeed([]byte("author")))
	require.NoError(t, err)
	p.Class = class
	return p
}

func TestRequireIntentFailsOnEmptyMessage(t *testing.T) {
	g := New(nil, RequireIntent{})
	p := newProposal(t, "", model.ClassContentUpdate)
	d := g.Evaluate(context.Background(), p, Context{})
	require.False(t, d.Accepted)
	require.Len(t, d.Reasons, 1)
}

func TestRequireIntentPassesWithMessage(t *testing.T) {
	g := New(nil, RequireIntent{})
	p := newProposal(t, "add feature", model.ClassContentUpdate)
	d := g.Evaluate(context.Background(), p, Context{})
	require.True(t, d.Accepted)
}

func TestRequireEvidenceSkipsUnlistedClass(t *testing.T) {
	g := New(nil, RequireEvidence{Classes: []model.CommitmentClass{model.ClassPolicyChange}})
	p := newProposal(t, "tweak", model.ClassContentUpdate)
	d := g.Evaluate(context.Background(), p, Context{})
	require.True(t, d.Accepted)
}

func TestRequireEvidenceFailsWithoutEvidence(t *testing.T) {
	g := New(nil, RequireEvidence{Classes: []model.CommitmentClass{model.ClassPolicyChange}})
	p := newProposal(t, "change policy", model.ClassPolicyChange)
	d := g.Evaluate(context.Background(), p, Context{})
	require.False(t, d.Accepted)
}

func TestRequireEvidencePassesWithEvidence(t *testing.T) {
	g := New(nil, RequireEvidence{Classes: []model.CommitmentClass{model.ClassPolicyChange}})
	p := newProposal(t, "change policy", model.ClassPolicyChange)
	p.Evidence = model.NewEvidenceBundle([]string{"https://example.com/evidence"})
	d := g.Evaluate(context.Background(), p, Context{})
	require.True(t, d.Accepted)
}

func TestAllowedClassesRejectsOutsideSet(t *testing.T) {
	g := New(nil, AllowedClasses{Allowed: []model.CommitmentClass{model.ClassReadOnly}})
	p := newProposal(t, "hello", model.ClassStructuralChange)
	d := g.Evaluate(context.Background(), p, Context{})
	require.False(t, d.Accepted)
}

func TestMaxSizeLimitFailsOverBound(t *testing.T) {
	tree := model.ObjectId{1, 2, 3}
	g := New(nil, MaxSizeLimit{MaxBytes: 100})
	p := newProposal(t, "big tree", model.ClassContentUpdate)
	p.Tree = &tree

	gctx := Context{TreeSize: func(model.ObjectId) (int64, error) { return 200, nil }}
	d := g.Evaluate(context.Background(), p, gctx)
	require.False(t, d.Accepted)
}

func TestMaxSizeLimitPassesWithoutTree(t *testing.T) {
	g := New(nil, MaxSizeLimit{MaxBytes: 1})
	p := newProposal(t, "no tree", model.ClassContentUpdate)
	d := g.Evaluate(context.Background(), p, Context{})
	require.True(t, d.Accepted)
}

func TestPipelineShortCircuitsOnFirstFail(t *testing.T) {
	calls := 0
	spy := spyRule{onEvaluate: func() { calls++ }}
	g := New(nil, RequireIntent{}, spy)

	p := newProposal(t, "", model.ClassContentUpdate)
	d := g.Evaluate(context.Background(), p, Context{})
	require.False(t, d.Accepted)
	require.Equal(t, 0, calls)
}

func TestPolicyHashStableForSameConfiguration(t *testing.T) {
	g1 := New(nil, RequireIntent{}, AllowedClasses{Allowed: []model.CommitmentClass{model.ClassReadOnly}})
	g2 := New(nil, RequireIntent{}, AllowedClasses{Allowed: []model.CommitmentClass{model.ClassReadOnly}})
	require.Equal(t, g1.PolicyHash(), g2.PolicyHash())
}

func TestPolicyHashDiffersForDifferentConfiguration(t *testing.T) {
	g1 := New(nil, RequireIntent{})
	g2 := New(nil, RequireIntent{}, AllowedClasses{Allowed: []model.CommitmentClass{model.ClassReadOnly}})
	require.NotEqual(t, g1.PolicyHash(), g2.PolicyHash())
}

func TestCapabilityCheckRejectsMissingToken(t *testing.T) {
	g := New(nil, CapabilityCheck{Key: []byte("secret")})
	p := newProposal(t, "hello", model.ClassContentUpdate)
	d := g.Evaluate(context.Background(), p, Context{})
	require.False(t, d.Accepted)
}

func TestCapabilityCheckAcceptsValidScopedToken(t *testing.T) {
	secret := []byte("secret")
	author := model.WorldlineIdFromSeed([]byte("author"))
	token, err := IssueCapability(secret, jwt.SigningMethodHS256, author, []string{"ContentUpdate"}, time.Hour)
	require.NoError(t, err)

	g := New(nil, CapabilityCheck{Key: secret})
	p := newProposal(t, "hello", model.ClassContentUpdate)
	d := g.Evaluate(context.Background(), p, Context{CapabilityToken: token})
	require.True(t, d.Accepted)
}

func TestCapabilityCheckRejectsWrongScope(t *testing.T) {
	secret := []byte("secret")
	author := model.WorldlineIdFromSeed([]byte("author"))
	token, err := IssueCapability(secret, jwt.SigningMethodHS256, author, []string{"ReadOnly"}, time.Hour)
	require.NoError(t, err)

	g := New(nil, CapabilityCheck{Key: secret})
	p := newProposal(t, "hello", model.ClassContentUpdate)
	d := g.Evaluate(context.Background(), p, Context{CapabilityToken: token})
	require.False(t, d.Accepted)
}

func TestCapabilityCheckRejectsExpiredToken(t *testing.T) {
	secret := []byte("secret")
	author := model.WorldlineIdFromSeed([]byte("author"))
	token, err := IssueCapability(secret, jwt.SigningMethodHS256, author, []string{"*"}, -time.Hour)
	require.NoError(t, err)

	g := New(nil, CapabilityCheck{Key: secret})
	p := newProposal(t, "hello", model.ClassContentUpdate)
	d := g.Evaluate(context.Background(), p, Context{CapabilityToken: token})
	require.False(t, d.Accepted)
}

type spyRule struct {
	onEvaluate func()
}

func (spyRule) Descriptor() canon.RuleDescriptor { return canon.RuleDescriptor{Name: "spy"} }

func (s spyRule) Evaluate(context.Context, model.CommitmentProposal, Context) RuleOutcome {
	s.onEvaluate()
	return passOutcome()
}
