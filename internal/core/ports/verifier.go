package ports

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/escrow-network/escrowd/internal/core/domain"
)

// OrderVerifier computes the canonical, domain-bound digest of a sell order
// and recovers the signer of a compact signature over it. It is injected so
// the matcher logic can be tested without a real cryptographic backend.
type OrderVerifier interface {
	// Digest returns the canonical digest of the order bound to this escrow
	// instance. The digest doubles as the fill-tracking key.
	Digest(order domain.SellOrder) common.Hash
	// RecoverSigner returns the address that produced the given 65 byte
	// compact signature over the digest.
	RecoverSigner(digest common.Hash, sig []byte) (common.Address, error)
}
