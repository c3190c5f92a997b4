package model

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedKeyType is returned for key types this package cannot
	// sign or verify with. secp256k1 is declared on the wire but has no
	// implementation in the Go standard crypto packages.
	ErrUnsupportedKeyType = errors.New("unsupported key type")
	ErrInvalidSignature   = errors.New("invalid payload signature")
	ErrHashMismatch       = errors.New("payload hash mismatch")
	ErrUnsigned           = errors.New("message is not signed")
)

// GenerateKey creates a new private key of the given type.
func GenerateKey(kt KeyType) (crypto.Signer, error) {
	switch kt {
	case KeyTypeEd25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		return priv, nil
	case KeyTypeEcP256:
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKeyType, kt)
	}
}

// KeyTypeOf returns the W3CP key type of a public or private key.
func KeyTypeOf(key any) (KeyType, error) {
	switch k := key.(type) {
	case ed25519.PublicKey, ed25519.PrivateKey:
		return KeyTypeEd25519, nil
	case *ecdsa.PublicKey:
		if k.Curve == elliptic.P256() {
			return KeyTypeEcP256, nil
		}
	case *ecdsa.PrivateKey:
		if k.Curve == elliptic.P256() {
			return KeyTypeEcP256, nil
		}
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedKeyType, key)
}

// EncodePublicKey converts a public key to its wire form.
func EncodePublicKey(pub crypto.PublicKey) (PublicKey, error) {
	kt, err := KeyTypeOf(pub)
	if err != nil {
		return PublicKey{}, err
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return PublicKey{}, fmt.Errorf("marshal public key: %w", err)
	}
	return PublicKey{Type: kt, Encoding: KeyEncodingBase64URL, Value: base64.RawURLEncoding.EncodeToString(der)}, nil
}

// EncodePrivateKey converts a private key to its wire form.
func EncodePrivateKey(priv crypto.Signer) (PrivateKey, error) {
	kt, err := KeyTypeOf(priv)
	if err != nil {
		return PrivateKey{}, err
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("marshal private key: %w", err)
	}
	return PrivateKey{Type: kt, Encoding: KeyEncodingBase64URL, Value: base64.RawURLEncoding.EncodeToString(der)}, nil
}

// Decode parses the key material and checks it against Type.
func (k PublicKey) Decode() (crypto.PublicKey, error) {
	if k.Type == KeyTypeSecp256k1 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKeyType, k.Type)
	}
	der, err := base64.RawURLEncoding.DecodeString(k.Value)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	if err := checkKeyType(k.Type, pub); err != nil {
		return nil, err
	}
	return pub, nil
}

// Decode parses the key material and checks it against Type.
func (k PrivateKey) Decode() (crypto.Signer, error) {
	if k.Type == KeyTypeSecp256k1 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKeyType, k.Type)
	}
	der, err := base64.RawURLEncoding.DecodeString(k.Value)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	signer, ok := parsed.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKeyType, parsed)
	}
	if err := checkKeyType(k.Type, signer); err != nil {
		return nil, err
	}
	return signer, nil
}

func checkKeyType(want KeyType, key any) error {
	got, err := KeyTypeOf(key)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("key type mismatch: declared %s, got %s", want, got)
	}
	return nil
}

// Signer signs message payloads with a Charge Point key.
type Signer struct {
	key     crypto.Signer
	keyType KeyType
}

// NewSigner wraps an ed25519 or P-256 private key.
func NewSigner(key crypto.Signer) (*Signer, error) {
	kt, err := KeyTypeOf(key)
	if err != nil {
		return nil, err
	}
	return &Signer{key: key, keyType: kt}, nil
}

// KeyType returns the type of the signing key.
func (s *Signer) KeyType() KeyType {
	return s.keyType
}

// PublicKey returns the wire form of the signer's public key.
func (s *Signer) PublicKey() (PublicKey, error) {
	return EncodePublicKey(s.key.Public())
}

// Verifier returns a Verifier for the signer's public key.
func (s *Signer) Verifier() *Verifier {
	return &Verifier{key: s.key.Public(), keyType: s.keyType}
}

// SignDigest signs a SHA-256 digest. Ed25519 signs the digest bytes as the
// message; P-256 produces an ASN.1 ECDSA signature.
func (s *Signer) SignDigest(digest []byte) ([]byte, error) {
	switch k := s.key.(type) {
	case ed25519.PrivateKey:
		return ed25519.Sign(k, digest), nil
	case *ecdsa.PrivateKey:
		return ecdsa.SignASN1(rand.Reader, k, digest)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKeyType, s.key)
	}
}

// Verifier checks payload signatures against a public key.
type Verifier struct {
	key     crypto.PublicKey
	keyType KeyType
}

// NewVerifier builds a verifier from a wire public key.
func NewVerifier(pk PublicKey) (*Verifier, error) {
	key, err := pk.Decode()
	if err != nil {
		return nil, err
	}
	return &Verifier{key: key, keyType: pk.Type}, nil
}

// VerifyDigest checks sig over digest.
func (v *Verifier) VerifyDigest(digest, sig []byte) error {
	var ok bool
	switch k := v.key.(type) {
	case ed25519.PublicKey:
		ok = ed25519.Verify(k, digest, sig)
	case *ecdsa.PublicKey:
		ok = ecdsa.VerifyASN1(k, digest, sig)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedKeyType, v.key)
	}
	if !ok {
		return ErrInvalidSignature
	}
	return nil
}

// SignMessage sets PayloadSha256Hash and PayloadSignature on m.
func SignMessage[T any](m *Message[T], s *Signer) error {
	digest, err := PayloadDigest(m.Payload)
	if err != nil {
		return err
	}
	sig, err := s.SignDigest(digest)
	if err != nil {
		return fmt.Errorf("sign payload: %w", err)
	}
	hash := base64.RawURLEncoding.EncodeToString(digest)
	signature := base64.RawURLEncoding.EncodeToString(sig)
	m.PayloadSha256Hash = &hash
	m.PayloadSignature = &signature
	return nil
}

// VerifyMessage recomputes the payload hash of m, compares it with the
// carried hash when present and verifies the signature.
func VerifyMessage[T any](m Message[T], v *Verifier) error {
	if m.PayloadSignature == nil {
		return ErrUnsigned
	}
	digest, err := PayloadDigest(m.Payload)
	if err != nil {
		return err
	}
	if m.PayloadSha256Hash != nil && *m.PayloadSha256Hash != base64.RawURLEncoding.EncodeToString(digest) {
		return ErrHashMismatch
	}
	sig, err := base64.RawURLEncoding.DecodeString(*m.PayloadSignature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return v.VerifyDigest(digest, sig)
}
