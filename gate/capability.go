package gate

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/mapleaiorg/wll/canon"
	"github.com/mapleaiorg/wll/model"
)

// ErrMissingToken is the CapabilityCheck failure reason when Context carries
// no bearer token at all.
var ErrMissingToken = errors.New("gate: no capability token presented")

// CapabilityClaims is the JWT claim set a capability token carries: the
// worldline it authorizes writes against, and the set of commitment
// classes (by String() form) it grants. Standard registered claims (exp,
// nbf, iat) are honored by jwt.ParseWithClaims's own validation.
type CapabilityClaims struct {
	jwt.RegisteredClaims
	Worldline string   `json:"worldline"`
	Scopes    []string `json:"scopes"`
}

// hasScope reports whether class's String() form appears in the claimed
// scopes, or the wildcard scope "*" is present.
func (c CapabilityClaims) hasScope(class model.CommitmentClass) bool {
	for _, s := range c.Scopes {
		if s == "*" || s == class.String() {
			return true
		}
	}
	return false
}

// CapabilityCheck fails a proposal unless the bearer token presented in
// Context.CapabilityToken is a validly signed, unexpired JWT whose scopes
// include the proposal's class and whose worldline claim, when the token
// carries one, matches the proposal's author, per spec.md §4.4's
// CapabilityCheck(token) rule.
type CapabilityCheck struct {
	// Key verifies the token signature (HMAC secret or RSA/ECDSA public
	// key, per the signing method configured on tokens this gate accepts).
	Key any
}

func (c CapabilityCheck) Descriptor() canon.RuleDescriptor {
	return canon.RuleDescriptor{Name: "CapabilityCheck"}
}

func (c CapabilityCheck) Evaluate(_ context.Context, proposal model.CommitmentProposal, gctx Context) RuleOutcome {
	if gctx.CapabilityToken == "" {
		return failOutcome(ErrMissingToken.Error())
	}

	var claims CapabilityClaims
	_, err := jwt.ParseWithClaims(gctx.CapabilityToken, &claims, func(*jwt.Token) (any, error) {
		return c.Key, nil
	})
	if err != nil {
		return failOutcome("invalid capability token: %v", err)
	}

	if claims.Worldline != "" && claims.Worldline != proposal.Author.String() {
		return failOutcome("capability token is scoped to worldline %s, not %s", claims.Worldline, proposal.Author)
	}
	if !claims.hasScope(proposal.Class) {
		return failOutcome("capability token lacks scope %s", proposal.Class)
	}
	return passOutcome()
}

// IssueCapability mints a signed capability token for the given worldline
// and scopes, valid for ttl from now. Intended for tests and local tooling;
// production issuance belongs to whatever authority holds the signing key.
func IssueCapability(signingKey any, method jwt.SigningMethod, worldline model.WorldlineId, scopes []string, ttl time.Duration) (string, error) {
	claims := CapabilityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Worldline: worldline.String(),
		Scopes:    scopes,
	}
	return jwt.NewWithClaims(method, claims).SignedString(signingKey)
}
