package domain

import (
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "trustlink/pkg/domain-errors"
)

// maxAddressLength bounds address size at trust boundaries. Ledger addresses
// (account keys, contract ids) are well under this.
const maxAddressLength = 128

// AttestationIDLength is the length of the hex-encoded attestation digest.
const AttestationIDLength = 64

// Address identifies an account on the ledger: an administrator, an issuer or
// a subject. It is opaque to the registry beyond equality.
type Address string

// AttestationID is the deterministic identifier of an attestation.
type AttestationID string

// ClaimType is an issuer-chosen label such as "KYC_PASSED". The registry keeps
// no catalogue of claim types; any string is accepted.
type ClaimType string

// ParseAddress validates an address at a trust boundary.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	if len(s) > maxAddressLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address is too long")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must be valid UTF-8")
	}
	if strings.IndexFunc(s, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must not contain whitespace or control characters")
	}
	return Address(s), nil
}

func (a Address) String() string {
	return string(a)
}

func (a Address) IsNil() bool {
	return a == ""
}

// ParseAttestationID validates the fixed hex format of an attestation id.
func ParseAttestationID(s string) (AttestationID, error) {
	if len(s) != AttestationIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "attestation id must be 64 hex characters")
	}
	if strings.ToLower(s) != s {
		return "", dErrors.New(dErrors.CodeInvalidInput, "attestation id must be lowercase hex")
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "attestation id must be lowercase hex")
	}
	return AttestationID(s), nil
}

func (id AttestationID) String() string {
	return string(id)
}

func (id AttestationID) IsNil() bool {
	return id == ""
}

func (c ClaimType) String() string {
	return string(c)
}
