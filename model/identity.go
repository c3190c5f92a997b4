package model

import (
	"time"

	"github.com/google/uuid"
)

// IdentityType selects how a Charge Point proves who it is.
type IdentityType string

const (
	// IdentityPublicKey is a raw public key identity.
	IdentityPublicKey IdentityType = "publicKey"
	// IdentityX509Certificate is an X.509 certificate based identity.
	IdentityX509Certificate IdentityType = "x509Certificate"
	// IdentityWeb3 is a decentralized identifier (DID) identity.
	IdentityWeb3 IdentityType = "web3"
)

// KeyType is the algorithm family of a key.
type KeyType string

const (
	KeyTypeEd25519   KeyType = "ed25519"   // KILT, JWS EdDSA
	KeyTypeSecp256k1 KeyType = "secp256k1" // EWC / ethr-did, JWS ES256K
	KeyTypeEcP256    KeyType = "ecP256"    // enterprise X.509, JWS ES256
)

// KeyEncoding is the textual encoding of key material.
type KeyEncoding string

const KeyEncodingBase64URL KeyEncoding = "base64url"

// PublicKey is a public key as carried on the wire. Value holds the
// DER-encoded SubjectPublicKeyInfo.
type PublicKey struct {
	Type     KeyType     `json:"type" validate:"required,oneof=ed25519 secp256k1 ecP256"`
	Encoding KeyEncoding `json:"encoding" validate:"required,oneof=base64url"`
	Value    string      `json:"value" validate:"required,base64rawurl"`
}

// Validate checks type, encoding and value of the key.
func (k PublicKey) Validate() error {
	return validateStruct(k)
}

// PrivateKey exists only for test and simulator purposes. Real Charge Points
// keep private keys in secure storage (HSM, TPM, secure enclave) and never
// expose them. Value is usually a PKCS#8 private key.
type PrivateKey struct {
	Type     KeyType     `json:"type" validate:"required,oneof=ed25519 secp256k1 ecP256"`
	Encoding KeyEncoding `json:"encoding" validate:"required,oneof=base64url"`
	Value    string      `json:"value" validate:"required,base64rawurl"`
}

// Validate checks type, encoding and value of the key.
func (k PrivateKey) Validate() error {
	return validateStruct(k)
}

// Web3IdentityMethod is the DID method of a Web3Identity.
type Web3IdentityMethod string

const (
	Web3MethodEWC      Web3IdentityMethod = "ewc"  // Energy Web Chain (ethr-did)
	Web3MethodKILT     Web3IdentityMethod = "kilt" // KILT DID (light/full)
	Web3MethodPolkadot Web3IdentityMethod = "polkadot"
)

// Web3Identity is a Web3 DID identity.
type Web3Identity struct {
	Method Web3IdentityMethod `json:"method" validate:"required,oneof=ewc kilt polkadot"`
	DID    string             `json:"did" validate:"required"`
	// Kid is an optional key fragment, e.g. "#key-1".
	Kid *string `json:"kid,omitempty"`
}

// X509Identity is an identity backed by a PEM-encoded certificate.
type X509Identity struct {
	CertificatePEM string `json:"certificatePem" validate:"required"`
}

// IdentityChallenge is sent by the backend to challenge the Charge Point's
// identity.
type IdentityChallenge struct {
	// Nonce is a fresh single-use value the CP has to sign.
	Nonce string `json:"nonce" validate:"required"`
	// Timestamp is the current backend time and lets the CP sync its clock.
	Timestamp time.Time `json:"timestamp" validate:"required"`
	// Difficulty is the proof-of-work level: the number of trailing zero
	// bits required in the SHA-256 hash of the IdentityProof payload.
	// Zero means any hash is accepted.
	Difficulty int `json:"difficulty" validate:"gte=0,lte=256"`
}

// Validate checks the nonce and difficulty.
func (c IdentityChallenge) Validate() error {
	return validateStruct(c)
}

// IdentityProof is sent by a Charge Point in response to an
// IdentityChallenge. When the challenge asked for proof of work, PowNonce is
// varied until the hash of the serialized proof meets the difficulty.
type IdentityProof struct {
	CPID         string        `json:"cpId" validate:"required"`
	Timestamp    time.Time     `json:"timestamp" validate:"required"`
	Nonce        string        `json:"nonce" validate:"required"`
	IdentityType IdentityType  `json:"identityType" validate:"required,oneof=publicKey x509Certificate web3"`
	Web3Identity *Web3Identity `json:"web3Identity,omitempty" validate:"required_if=IdentityType web3"`
	PowNonce     int64         `json:"powNonce"`
}

// Validate checks the proof fields. It does not verify the signature.
func (p IdentityProof) Validate() error {
	return validateStruct(p)
}

// IdentityDiscovery asks the Charge Point to report every identity it
// controls. The backend decides whether to allow it on unverified
// connections.
type IdentityDiscovery struct {
	CorrelationID uuid.UUID `json:"correlationId" validate:"required"`
	Timestamp     time.Time `json:"timestamp" validate:"required"`
}

// Validate checks the discovery request.
func (d IdentityDiscovery) Validate() error {
	return validateStruct(d)
}

// IdentityReport answers an IdentityDiscovery with the available identities
// grouped by type.
type IdentityReport struct {
	CorrelationID    uuid.UUID      `json:"correlationId" validate:"required"`
	Timestamp        time.Time      `json:"timestamp" validate:"required"`
	PublicKeys       []PublicKey    `json:"publicKeys" validate:"dive"`
	X509Certificates []X509Identity `json:"x509Certificates" validate:"dive"`
	Web3Identities   []Web3Identity `json:"web3Identities" validate:"dive"`
}

// Validate checks the report and every key in it.
func (r IdentityReport) Validate() error {
	return validateStruct(r)
}
