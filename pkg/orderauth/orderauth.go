// Package orderauth computes the canonical digest of signed sell orders and
// recovers the maker identity from compact signatures over it.
//
// The digest is the keccak256 hash of a fixed-width big-endian encoding of
// every order field, prefixed with a separator hash binding the signature to
// one escrow deployment (protocol name and version, chain id, instance id).
// Signatures are 65 byte compact secp256k1 signatures in [R || S || V]
// form, with V being the bare recovery id.
package orderauth

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/escrow-network/escrowd/internal/core/domain"
)

const (
	// SignatureLength is the length of a compact order signature.
	SignatureLength = 65

	// compactSigMagicOffset is the scalar the underlying secp256k1 library
	// adds to the recovery id in the signature header byte.
	compactSigMagicOffset = 27

	// serializedOrderLen is the length of the canonical order encoding:
	// separator (32) + maker (20) + asset hash (32) + unit price (8) +
	// unit deposit (8) + total quantity (8) + min fill (8) + expiry (8) +
	// nonce (8) + allowed taker (20) + direction (1) + agreement hash (32).
	serializedOrderLen = 32 + 20 + 32 + 8 + 8 + 8 + 8 + 8 + 8 + 20 + 1 + 32
)

// Domain identifies one escrow deployment. Orders signed for one domain can
// never be replayed against another.
type Domain struct {
	Name       string
	Version    string
	ChainID    uint64
	InstanceID string
}

// Verifier derives order digests for a fixed domain and verifies compact
// signatures over them.
type Verifier struct {
	separator common.Hash
}

// NewVerifier returns a Verifier bound to the given domain.
func NewVerifier(dom Domain) *Verifier {
	chainID := make([]byte, 8)
	binary.BigEndian.PutUint64(chainID, dom.ChainID)
	separator := crypto.Keccak256Hash(
		[]byte(dom.Name), []byte(dom.Version),
		chainID, crypto.Keccak256([]byte(dom.InstanceID)),
	)
	return &Verifier{separator}
}

// Digest returns the canonical digest of the order. The same digest is used
// as the signing payload and as the fill-tracking key, so the encoding must
// stay stable across releases.
func (v *Verifier) Digest(order domain.SellOrder) common.Hash {
	buf := make([]byte, 0, serializedOrderLen)
	buf = append(buf, v.separator[:]...)
	buf = append(buf, order.Maker[:]...)
	buf = append(buf, crypto.Keccak256([]byte(order.Asset))...)
	buf = appendUint64(buf, order.UnitPrice)
	buf = appendUint64(buf, order.UnitDeposit)
	buf = appendUint64(buf, order.TotalQuantity)
	buf = appendUint64(buf, order.MinFillAmount)
	buf = appendUint64(buf, uint64(order.Expiry))
	buf = appendUint64(buf, order.Nonce)
	buf = append(buf, order.AllowedTaker[:]...)
	buf = append(buf, byte(order.Direction))
	buf = append(buf, crypto.Keccak256([]byte(order.AgreementHash))...)
	return crypto.Keccak256Hash(buf)
}

// RecoverSigner returns the address that produced the given compact
// signature over the digest.
func (v *Verifier) RecoverSigner(
	digest common.Hash, sig []byte,
) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf(
			"invalid signature length %d, want %d", len(sig), SignatureLength,
		)
	}

	// RecoverCompact wants the recovery byte first and offset by the magic
	// scalar, while signatures travel in [R || S || V] form. Tolerate
	// signers that ship V already offset.
	recID := sig[SignatureLength-1]
	if recID >= compactSigMagicOffset {
		recID -= compactSigMagicOffset
	}
	compact := make([]byte, SignatureLength)
	compact[0] = recID + compactSigMagicOffset
	copy(compact[1:], sig[:SignatureLength-1])

	pubKey, _, err := btcecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return common.Address{}, fmt.Errorf("recovering pubkey: %w", err)
	}
	return addressOfPubKey(pubKey)
}

// Sign produces a compact [R || S || V] signature of the digest with the
// given private key. It is the counterpart of RecoverSigner, meant for
// makers authorizing orders and for tests.
func Sign(key *btcec.PrivateKey, digest common.Hash) ([]byte, error) {
	compact, err := btcecdsa.SignCompact(key, digest[:], false)
	if err != nil {
		return nil, err
	}

	sig := make([]byte, SignatureLength)
	copy(sig, compact[1:])
	sig[SignatureLength-1] = compact[0] - compactSigMagicOffset
	return sig, nil
}

// AddressOf returns the address bound to the given private key.
func AddressOf(key *btcec.PrivateKey) (common.Address, error) {
	return addressOfPubKey(key.PubKey())
}

func addressOfPubKey(pubKey *btcec.PublicKey) (common.Address, error) {
	pk, err := crypto.UnmarshalPubkey(pubKey.SerializeUncompressed())
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pk), nil
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}
