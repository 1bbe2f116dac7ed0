// Package identity derives deterministic attestation identifiers.
//
// The id is SHA3-256 over a canonical encoding of
// (issuer, subject, claim_type, timestamp), hex encoded. Identical inputs
// always give the same id, which is how duplicate issuance in the same ledger
// second is detected and how off-chain verifiers recompute ids.
//
// Layout:
//
//	1 byte    encoding version
//	4 + n     issuer (big-endian length prefix)
//	4 + m     subject (big-endian length prefix)
//	4 + k     claim type (big-endian length prefix)
//	8 bytes   timestamp, unix seconds (big-endian)
//
// Length prefixes keep the encoding injective: ("ab","c") and ("a","bc") never
// collide before hashing.
package identity

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"

	id "trustlink/pkg/domain"
)

// EncodingVersion is the first byte of every canonical encoding.
const EncodingVersion byte = 1

// Canonical returns the canonical byte encoding of the identifying tuple.
func Canonical(issuer, subject id.Address, claimType id.ClaimType, timestamp time.Time) []byte {
	size := 1 + 4 + len(issuer) + 4 + len(subject) + 4 + len(claimType) + 8
	buf := make([]byte, 0, size)
	buf = append(buf, EncodingVersion)
	buf = appendLengthPrefixed(buf, string(issuer))
	buf = appendLengthPrefixed(buf, string(subject))
	buf = appendLengthPrefixed(buf, string(claimType))
	buf = binary.BigEndian.AppendUint64(buf, uint64(timestamp.Unix()))
	return buf
}

// GenerateID derives the attestation id for the tuple. Timestamps are taken
// at second resolution, matching ledger time.
func GenerateID(issuer, subject id.Address, claimType id.ClaimType, timestamp time.Time) id.AttestationID {
	digest := sha3.Sum256(Canonical(issuer, subject, claimType, timestamp))
	return id.AttestationID(hex.EncodeToString(digest[:]))
}

func appendLengthPrefixed(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}
