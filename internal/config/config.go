package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/escrow-network/escrowd/internal/core/domain"
)

const (
	// HTTPListeningPortKey is the port where the HTTP/JSON interface will listen on
	HTTPListeningPortKey = "HTTP_LISTENING_PORT"
	// DatadirKey is the local data directory to store the internal state of daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// LogFileKey is the path of an optional file the daemon logs to, rotated by size
	LogFileKey = "LOG_FILE"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// AdminAddrKey is the address granted the arbitration and platform operations
	AdminAddrKey = "ADMIN_ADDRESS"
	// VaultAddrKey is the address receiving the platform fee cut on settlements
	VaultAddrKey = "VAULT_ADDRESS"
	// FeeBasisPointsKey is the initial platform fee in basis points, applied on top of the trade price
	FeeBasisPointsKey = "FEE_BASIS_POINTS"
	// MaxFeeBasisPointsKey is the ceiling any fee update must stay under
	MaxFeeBasisPointsKey = "MAX_FEE_BASIS_POINTS"
	// AdminSecretKey is the shared secret admin HTTP requests must present as a bearer token
	AdminSecretKey = "ADMIN_SECRET"
	// ChainIDKey is mixed into the order signing domain so signatures cannot cross chains
	ChainIDKey = "CHAIN_ID"
	// InstanceIDKey distinguishes deployments sharing a chain in the order signing domain
	InstanceIDKey = "INSTANCE_ID"
	// LedgerGenesisKey is the path of an optional JSON file seeding the in-process asset ledger
	LedgerGenesisKey = "LEDGER_GENESIS"

	DbLocation = "db"

	// DBBadger and DBInMemory are the supported DBTypeKey values.
	DBBadger   = "badger"
	DBInMemory = "inmemory"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("escrowd", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("ESCROWD")
	vip.AutomaticEnv()

	vip.SetDefault(HTTPListeningPortKey, 9945)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(DBTypeKey, DBBadger)
	vip.SetDefault(FeeBasisPointsKey, 0)
	vip.SetDefault(MaxFeeBasisPointsKey, 1000)
	vip.SetDefault(ChainIDKey, 1)
	vip.SetDefault(InstanceIDKey, "mainnet")

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetUint32(key string) uint32 {
	return vip.GetUint32(key)
}

func GetUint64(key string) uint64 {
	return vip.GetUint64(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	if dbType := GetString(DBTypeKey); dbType != DBBadger && dbType != DBInMemory {
		return fmt.Errorf(
			"%s must be either %s or %s", DBTypeKey, DBBadger, DBInMemory,
		)
	}

	if !common.IsHexAddress(GetString(AdminAddrKey)) {
		return fmt.Errorf("%s must be a valid hex address", AdminAddrKey)
	}
	if !common.IsHexAddress(GetString(VaultAddrKey)) {
		return fmt.Errorf("%s must be a valid hex address", VaultAddrKey)
	}

	if len(GetString(AdminSecretKey)) <= 0 {
		return fmt.Errorf("missing admin secret")
	}

	maxFee := GetUint32(MaxFeeBasisPointsKey)
	if maxFee == 0 || maxFee > domain.MaxFeeBasisPoints {
		return fmt.Errorf(
			"%s must be in range (0, %d]",
			MaxFeeBasisPointsKey, domain.MaxFeeBasisPoints,
		)
	}
	if fee := GetUint32(FeeBasisPointsKey); fee > maxFee {
		return fmt.Errorf(
			"%s must not exceed %s", FeeBasisPointsKey, MaxFeeBasisPointsKey,
		)
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	return makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
