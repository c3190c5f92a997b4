package model

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSON(t *testing.T) {
	payload := map[string]any{
		"zeta":  1,
		"alpha": map[string]any{"b": true, "a": "<x>"},
		"mid":   []any{3, 2.5},
	}
	out, err := CanonicalJSON(payload)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":{"a":"<x>","b":true},"mid":[3,2.5],"zeta":1}`, string(out))
}

func TestCanonicalJSONStructOrder(t *testing.T) {
	out, err := CanonicalJSON(MessageError{Code: "E1", Message: "boom"})
	require.NoError(t, err)
	assert.Equal(t, `{"code":"E1","message":"boom"}`, string(out))
}

func TestPayloadHashIsStable(t *testing.T) {
	a, err := PayloadHash(map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)
	b, err := PayloadHash(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 43)
	assert.NotContains(t, a, "=")
}

func TestSignAndVerify(t *testing.T) {
	for _, kt := range []KeyType{KeyTypeEd25519, KeyTypeEcP256} {
		t.Run(string(kt), func(t *testing.T) {
			key, err := GenerateKey(kt)
			require.NoError(t, err)
			signer, err := NewSigner(key)
			require.NoError(t, err)
			assert.Equal(t, kt, signer.KeyType())

			pub, err := signer.PublicKey()
			require.NoError(t, err)
			require.NoError(t, pub.Validate())
			verifier, err := NewVerifier(pub)
			require.NoError(t, err)

			msg := NewMessage(MessageTypeChargePointStatus, sampleStatus())
			require.NoError(t, SignMessage(&msg, signer))
			require.NotNil(t, msg.PayloadSha256Hash)
			require.NotNil(t, msg.PayloadSignature)
			require.NoError(t, VerifyMessage(msg, verifier))

			msg.Payload.ConnectionType = ConnectionTypeLTE
			assert.ErrorIs(t, VerifyMessage(msg, verifier), ErrHashMismatch)

			msg.PayloadSha256Hash = nil
			assert.ErrorIs(t, VerifyMessage(msg, verifier), ErrInvalidSignature)
		})
	}
}

func TestVerifyUnsigned(t *testing.T) {
	key, err := GenerateKey(KeyTypeEd25519)
	require.NoError(t, err)
	signer, err := NewSigner(key)
	require.NoError(t, err)
	err = VerifyMessage(NewMessage(MessageTypeMessageError, MessageError{Code: "x"}), signer.Verifier())
	assert.ErrorIs(t, err, ErrUnsigned)
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	key, err := GenerateKey(KeyTypeEcP256)
	require.NoError(t, err)
	wire, err := EncodePrivateKey(key)
	require.NoError(t, err)
	require.NoError(t, wire.Validate())

	decoded, err := wire.Decode()
	require.NoError(t, err)
	want, err := EncodePublicKey(key.Public())
	require.NoError(t, err)
	got, err := EncodePublicKey(decoded.Public())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	wire.Type = KeyTypeEd25519
	_, err = wire.Decode()
	assert.Error(t, err)
}

func TestSecp256k1Unsupported(t *testing.T) {
	_, err := GenerateKey(KeyTypeSecp256k1)
	assert.ErrorIs(t, err, ErrUnsupportedKeyType)

	_, err = PrivateKey{Type: KeyTypeSecp256k1, Encoding: KeyEncodingBase64URL, Value: "AA"}.Decode()
	assert.ErrorIs(t, err, ErrUnsupportedKeyType)
}

func TestTrailingZeroBits(t *testing.T) {
	tests := []struct {
		hash []byte
		want int
	}{
		{[]byte{0xff, 0x01}, 0},
		{[]byte{0xff, 0x02}, 1},
		{[]byte{0xff, 0x80}, 7},
		{[]byte{0x01, 0x00}, 8},
		{[]byte{0x10, 0x00}, 12},
		{[]byte{0x00, 0x00}, 16},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TrailingZeroBits(tt.hash), "%x", tt.hash)
	}
}

func TestSolveProofOfWork(t *testing.T) {
	proof := IdentityProof{
		CPID:         "cp-1",
		Timestamp:    time.Date(2025, 1, 31, 17, 0, 0, 0, time.UTC),
		Nonce:        "nonce",
		IdentityType: IdentityPublicKey,
	}
	require.NoError(t, SolveProofOfWork(context.Background(), &proof, 8))

	ok, err := MeetsDifficulty(proof, 8)
	require.NoError(t, err)
	assert.True(t, ok)

	hash, err := ProofHash(proof)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, TrailingZeroBits(hash), 8)
}

func TestSolveProofOfWorkDifficultyZero(t *testing.T) {
	proof := IdentityProof{PowNonce: 42}
	require.NoError(t, SolveProofOfWork(context.Background(), &proof, 0))
	assert.Equal(t, int64(42), proof.PowNonce)
}

func TestSolveProofOfWorkCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	proof := IdentityProof{CPID: "cp-1"}
	err := SolveProofOfWork(ctx, &proof, 200)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeetsDifficultyRange(t *testing.T) {
	_, err := MeetsDifficulty(IdentityProof{}, 300)
	assert.ErrorIs(t, err, ErrInvalidDifficulty)
}
