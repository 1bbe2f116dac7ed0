package models

// Status is the derived lifecycle state of an attestation.
type Status string

const (
	StatusValid   Status = "valid"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

func (s Status) String() string {
	return string(s)
}
