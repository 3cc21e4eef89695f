// Package identity derives stable, privacy-preserving fingerprints for
// anonymous posters. Raw IPs and user-agent strings are never stored or
// exposed; every signal is salted and hashed before use, and the composite
// fingerprint is the only key persisted against comments and abuse state.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// minTokenLen is the shortest client-supplied token treated as valid.
// Anything shorter is noise and falls through to the next signal tier.
const minTokenLen = 16

// Signals are the weak identity inputs available on a request. All fields
// are optional; Resolver.Resolve never fails, it just degrades.
type Signals struct {
	// StableToken is a server-issued anon session token the client
	// persisted (strongest signal).
	StableToken string

	IP           string
	UserAgent    string
	SessionToken string

	// LocalToken is a client-generated localStorage ID (weakest tier,
	// used alone only when nothing else is available).
	LocalToken string
}

// Fingerprint is the resolved identity. Hash is the composite key used
// for all abuse-history lookups; IPHash and UAHash are kept separately for
// coarser ban-evasion checks. Confidence is 0-100, higher meaning more
// reliable signals went into the hash.
type Fingerprint struct {
	Hash       string
	IPHash     string
	UAHash     string
	Confidence int
}

// Resolver computes fingerprints with a deployment-specific salt, so
// hashes are not comparable across deployments or rainbow tables.
type Resolver struct {
	salt string
}

func NewResolver(salt string) *Resolver {
	return &Resolver{salt: salt}
}

// Resolve derives the fingerprint from a signal hierarchy, in priority
// order: a valid stable token alone; otherwise hashed IP + hashed UA +
// session token; otherwise the local-storage token alone. With no signals
// at all it still returns a (degraded, shared) fingerprint rather than
// failing: refusing to moderate is worse than moderating with low
// confidence.
func (r *Resolver) Resolve(sig Signals) Fingerprint {
	fp := Fingerprint{
		IPHash:     r.hashIP(sig.IP),
		UAHash:     r.hashUA(sig.UserAgent),
		Confidence: confidence(sig),
	}

	switch {
	case validToken(sig.StableToken):
		fp.Hash = r.hash("token::" + sig.StableToken)
	case sig.IP != "" || sig.UserAgent != "" || sig.SessionToken != "":
		fp.Hash = r.hash(strings.Join([]string{
			fp.IPHash, fp.UAHash, sig.SessionToken,
		}, "::"))
	case validToken(sig.LocalToken):
		fp.Hash = r.hash("local::" + sig.LocalToken)
	default:
		fp.Hash = r.hash("anonymous")
	}
	return fp
}

func (r *Resolver) hash(input string) string {
	data := input
	if r.salt != "" {
		data = input + ":" + r.salt
	}
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

func (r *Resolver) hashIP(ip string) string {
	if ip == "" {
		return r.hash("unknown-ip")
	}
	// Strip the IPv4-mapped IPv6 prefix so dual-stack clients hash the same.
	return r.hash(strings.TrimPrefix(ip, "::ffff:"))
}

func (r *Resolver) hashUA(ua string) string {
	if ua == "" {
		return r.hash("unknown-ua")
	}
	return r.hash(ua)
}

func validToken(tok string) bool {
	return len(tok) >= minTokenLen
}

// confidence scores the available signals 0-100. Callers may apply
// stricter defaults below a confidence floor; that policy lives outside
// this package.
func confidence(sig Signals) int {
	c := 0
	if sig.IP != "" {
		c += 30
	}
	if sig.UserAgent != "" {
		c += 20
	}
	if sig.SessionToken != "" {
		c += 20
	}
	if validToken(sig.StableToken) || validToken(sig.LocalToken) {
		c += 30
	}
	return c
}
