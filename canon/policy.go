package canon

import "github.com/mapleaiorg/wll/crypto"

// RuleDescriptor is the canonical-serialization view of one configured
// policy rule: its name and its parameters, rendered as strings. The gate
// builds these from its live PolicyRule pipeline so that policy_hash binds
// to the exact configuration that produced a decision.
type RuleDescriptor struct {
	Name   string
	Params []string
}

// SerializePipeline encodes an ordered rule pipeline deterministically:
// [count varint][for each: name(string) || param_count(varint) || params...].
func SerializePipeline(rules []RuleDescriptor) []byte {
	w := &Writer{}
	w.PutVarint(uint64(len(rules)))
	for _, rule := range rules {
		w.PutString(rule.Name)
		w.PutVarint(uint64(len(rule.Params)))
		for _, p := range rule.Params {
			w.PutString(p)
		}
	}
	return w.Bytes()
}

// HashPipeline computes policy_hash = BLAKE3("POLICY" ||
// canonical_serialize(pipeline_config)), per spec.md §4.4.
func HashPipeline(rules []RuleDescriptor) crypto.Digest {
	return crypto.HashWithDomain(crypto.DomainPolicy, SerializePipeline(rules))
}
