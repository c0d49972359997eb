// Package crypto implements the domain-separated hashing and Ed25519
// sign/verify primitives that every other wll package builds on (C1 in the
// component table). All hashing elsewhere in the system MUST go through
// HashWithDomain so that no two object kinds can ever collide on the same
// digest.
package crypto

import (
	"hash"

	"lukechampine.com/blake3"
)

// Size is the width, in bytes, of every digest produced by this package.
const Size = 32

// colon is the ASCII separator placed between the domain tag and the
// payload, per spec: BLAKE3(domain || 0x3A || data).
const colon = 0x3A

// Domain tags. Fixed, never reused for a different object kind.
const (
	DomainBlob        = "BLOB"
	DomainTree        = "TREE"
	DomainReceipt     = "RECEIPT"
	DomainCommit      = "COMMIT"
	DomainEvidence    = "EVIDENCE"
	DomainSnapshot    = "SNAPSHOT"
	DomainPolicy      = "POLICY"
	DomainAccumulator = "ACCUM"
)

// Digest is a 32-byte BLAKE3 output. It is the concrete byte form behind
// ObjectId; kept here rather than in package model to avoid a dependency
// cycle between model and crypto.
type Digest [Size]byte

// HashWithDomain computes BLAKE3(domain || 0x3A || data). domain is an ASCII
// tag such as DomainReceipt; it must not itself contain the colon separator.
func HashWithDomain(domain string, data []byte) Digest {
	h := blake3.New(Size, nil)
	h.Write([]byte(domain))
	h.Write([]byte{colon})
	h.Write(data)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// NewDomainHasher returns a streaming hash.Hash that, on Sum, computes
// HashWithDomain(domain, writtenBytes). It lets callers that need an
// incremental hash.Hash (for example the receipt accumulator's merkle
// mountain range, which appends nodes one Write/Sum cycle at a time) still
// go through the domain-separation discipline mandated for every hash in
// the system.
func NewDomainHasher(domain string) hash.Hash {
	return &domainHasher{domain: []byte(domain)}
}

type domainHasher struct {
	domain []byte
	buf    []byte
}

func (d *domainHasher) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	return len(p), nil
}

func (d *domainHasher) Sum(b []byte) []byte {
	h := blake3.New(Size, nil)
	h.Write(d.domain)
	h.Write([]byte{colon})
	h.Write(d.buf)
	return h.Sum(b)
}

func (d *domainHasher) Reset()         { d.buf = d.buf[:0] }
func (d *domainHasher) Size() int      { return Size }
func (d *domainHasher) BlockSize() int { return 64 }
