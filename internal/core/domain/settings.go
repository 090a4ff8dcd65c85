package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// MaxFeeBasisPoints is the hard ceiling of the platform fee rate. At 10000
// basis points the fee takes the whole price component.
const MaxFeeBasisPoints = 10000

// Settings holds the administrative configuration of the escrow: the single
// admin role, the fee rate applied to the price component at settlement and
// the vault collecting those fees. It is persisted as a singleton, seeded
// from the daemon configuration on first run.
type Settings struct {
	Admin          common.Address
	FeeVault       common.Address
	FeeBasisPoints uint32
	UpdatedAt      int64
}

// NewSettings validates and returns the initial settings record.
func NewSettings(
	admin, vault common.Address, feeBps uint32, now int64,
) (*Settings, error) {
	if admin == (common.Address{}) {
		return nil, ErrMissingParty
	}
	if vault == (common.Address{}) {
		return nil, ErrMissingVault
	}
	if feeBps > MaxFeeBasisPoints {
		return nil, ErrFeeAboveCeiling
	}
	return &Settings{
		Admin:          admin,
		FeeVault:       vault,
		FeeBasisPoints: feeBps,
		UpdatedAt:      now,
	}, nil
}

// UpdateFee changes the platform fee rate, rejecting values above the given
// ceiling.
func (s *Settings) UpdateFee(feeBps, ceiling uint32, now int64) error {
	if ceiling > MaxFeeBasisPoints {
		ceiling = MaxFeeBasisPoints
	}
	if feeBps > ceiling {
		return ErrFeeAboveCeiling
	}
	s.FeeBasisPoints = feeBps
	s.UpdatedAt = now
	return nil
}

// UpdateVault changes the fee payout destination, rejecting a zero address.
func (s *Settings) UpdateVault(vault common.Address, now int64) error {
	if vault == (common.Address{}) {
		return ErrMissingVault
	}
	s.FeeVault = vault
	s.UpdatedAt = now
	return nil
}

// IsAdmin returns whether the given address holds the administrative role.
func (s *Settings) IsAdmin(addr common.Address) bool {
	return addr == s.Admin
}
