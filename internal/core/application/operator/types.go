package operator

import (
	"github.com/ethereum/go-ethereum/common"
)

// Info describes the running deployment: the administrative settings in
// force plus the static limits and version baked in at startup.
type Info struct {
	Admin          common.Address
	FeeVault       common.Address
	FeeBasisPoints uint32
	FeeCeiling     uint32
	Version        string
}
