package core

import (
	"crypto/md5" //nolint:gosec // collision resistance isn't relied upon, see ParseToken doc.
	"crypto/rand"
	"encoding/binary"
)

// TokenLen is the fixed size of the State token, spec.md §3.
const TokenLen = 16

// buildVersion stands in for FreeRADIUS's RADIUSD_VERSION: three bytes
// folded into the vx0/vx1/vx2 fields so a state value carries a
// debugging hint about which build minted it.
const buildVersion uint32 = 0x040001

// token field offsets, spec.md §3.
const (
	offTries     = 0
	offTx        = 1
	offR0        = 2
	offServerID  = 3
	offContextID = 4 // 4..7
	offVx0       = 8
	offR5        = 9
	offVx1       = 10
	offR6        = 11
	offVx2       = 12
	// 13..15 are r7,r8,r9
)

// EmitToken builds the next State token in a conversation.
//
// prev is nil on the first round, in which case the whole block is
// filled with CSPRNG output before the structured fields are
// overwritten. On later rounds prev is reused verbatim except tries is
// incremented and tx recomputed, per spec.md §4.1 step 3.
//
// The returned token's context_id field has been XORed with ctxID one
// more time than prev's — this is the *stored* form used as the map
// key. Callers must pass the stored token through WireToken to recover
// the pre-XOR form before placing it in the outbound reply, per
// spec.md §4.1 step 4. Because the XOR is applied on every call, not
// just the first, the wire value alternates between its pre-XOR and
// post-XOR form across successive rounds of the same conversation.
func EmitToken(prev *[TokenLen]byte, ctxID uint32, serverID byte) (token [TokenLen]byte, tries uint8) {
	if prev == nil {
		if _, err := rand.Read(token[:]); err != nil {
			// crypto/rand.Read only fails if the OS CSPRNG is
			// broken; there is nothing a caller could do to
			// recover, so panic rather than silently mint a
			// predictable token.
			panic("core: crypto/rand unavailable: " + err.Error())
		}
	} else {
		token = *prev
		tries = token[offTries]
	}

	tries++
	token[offTries] = tries
	token[offTx] = tries ^ (tries - 1)
	token[offServerID] = serverID

	r0 := token[offR0]
	token[offVx0] = r0 ^ byte((buildVersion>>16)&0xff)
	token[offVx1] = r0 ^ byte((buildVersion>>8)&0xff)
	token[offVx2] = r0 ^ byte(buildVersion&0xff)

	// step 4: XOR context_id in place, after the structured fields
	// above are set but logically after the token would have been
	// copied into the outbound reply — WireToken undoes this for the
	// wire value, per spec.md §4.1 step 4.
	xorContextID(&token, ctxID)

	return token, tries
}

// xorContextID XORs the 4-byte context_id field in place.
func xorContextID(token *[TokenLen]byte, ctxID uint32) {
	cur := binary.BigEndian.Uint32(token[offContextID : offContextID+4])
	binary.BigEndian.PutUint32(token[offContextID:offContextID+4], cur^ctxID)
}

// ParseToken converts an inbound State attribute value into the 16-byte
// lookup key, applying the length-normalization and context XOR rules
// of spec.md §4.1.
//
// The MD5 fallback for oversized values exists only for interop with
// peers that echo back an oversized State; collision resistance is not
// relied upon for security here, only for avoiding accidental
// collisions between distinct legitimate oversized values.
func ParseToken(raw []byte, ctxID uint32) (key [TokenLen]byte) {
	switch {
	case len(raw) == TokenLen:
		copy(key[:], raw)
	case len(raw) > TokenLen:
		key = md5.Sum(raw) //nolint:gosec
	default:
		copy(key[:], raw)
	}
	xorContextID(&key, ctxID)
	return key
}

// WireToken returns the token as it should appear on the wire: the
// emitted token with context_id XORed back to its pre-XOR form. Given
// a token produced by EmitToken (which stores the post-XOR form) and
// the same ctxID, WireToken recovers the value to place in the reply
// attribute.
func WireToken(stored [TokenLen]byte, ctxID uint32) [TokenLen]byte {
	out := stored
	xorContextID(&out, ctxID)
	return out
}
