package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/escrow-network/escrowd/internal/config"
	"github.com/escrow-network/escrowd/internal/core/application/dispute"
	"github.com/escrow-network/escrowd/internal/core/application/guard"
	"github.com/escrow-network/escrowd/internal/core/application/operator"
	"github.com/escrow-network/escrowd/internal/core/application/order"
	apppubsub "github.com/escrow-network/escrowd/internal/core/application/pubsub"
	"github.com/escrow-network/escrowd/internal/core/application/trade"
	"github.com/escrow-network/escrowd/internal/core/ports"
	"github.com/escrow-network/escrowd/internal/infrastructure/ledger"
	pubsubstore "github.com/escrow-network/escrowd/internal/infrastructure/pubsub"
	dbbadger "github.com/escrow-network/escrowd/internal/infrastructure/storage/db/badger"
	"github.com/escrow-network/escrowd/internal/infrastructure/storage/db/inmemory"
	httpinterface "github.com/escrow-network/escrowd/internal/interfaces/http"
	"github.com/escrow-network/escrowd/pkg/orderauth"
)

const (
	signingDomainName    = "escrowd"
	signingDomainVersion = "1"
)

// version is set through ldflags at release time.
var version = "dev"

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	initLogger()

	log.Debugf("starting daemon version %s", version)

	// An empty db dir selects the in-memory flavor of every store.
	dbDir := ""
	if config.GetString(config.DBTypeKey) == config.DBBadger {
		dbDir = filepath.Join(config.GetDatadir(), config.DbLocation)
	}

	repoManager, err := openRepoManager(dbDir)
	if err != nil {
		log.WithError(err).Fatal("error while opening store")
	}

	assetLedger, err := openLedger()
	if err != nil {
		log.WithError(err).Fatal("error while opening asset ledger")
	}

	securePubSub, err := pubsubstore.NewService(dbDir, nil)
	if err != nil {
		log.WithError(err).Fatal("error while opening webhook store")
	}

	hub := httpinterface.NewEventHub()
	pubsubSvc, err := apppubsub.NewService(securePubSub, hub)
	if err != nil {
		log.WithError(err).Fatal("error while setting up pubsub service")
	}

	verifier := orderauth.NewVerifier(orderauth.Domain{
		Name:       signingDomainName,
		Version:    signingDomainVersion,
		ChainID:    config.GetUint64(config.ChainIDKey),
		InstanceID: config.GetString(config.InstanceIDKey),
	})
	opGuard := guard.New()

	tradeSvc, err := trade.NewService(repoManager, assetLedger, pubsubSvc, opGuard)
	if err != nil {
		log.WithError(err).Fatal("error while setting up trade service")
	}
	disputeSvc, err := dispute.NewService(
		repoManager, assetLedger, pubsubSvc, opGuard,
	)
	if err != nil {
		log.WithError(err).Fatal("error while setting up dispute service")
	}
	orderSvc, err := order.NewService(
		repoManager, assetLedger, verifier, pubsubSvc, opGuard,
	)
	if err != nil {
		log.WithError(err).Fatal("error while setting up order service")
	}
	operatorSvc, err := operator.NewService(
		repoManager, pubsubSvc,
		config.GetUint32(config.MaxFeeBasisPointsKey), version,
	)
	if err != nil {
		log.WithError(err).Fatal("error while setting up operator service")
	}

	// Seeding is a no-op on a datadir that already holds settings.
	if err := operatorSvc.InitSettings(
		context.Background(),
		common.HexToAddress(config.GetString(config.AdminAddrKey)),
		common.HexToAddress(config.GetString(config.VaultAddrKey)),
		config.GetUint32(config.FeeBasisPointsKey),
	); err != nil {
		log.WithError(err).Fatal("error while seeding platform settings")
	}

	httpSvc, err := httpinterface.NewService(httpinterface.ServiceOpts{
		Port:        config.GetInt(config.HTTPListeningPortKey),
		AdminSecret: config.GetString(config.AdminSecretKey),
		TradeSvc:    tradeSvc,
		DisputeSvc:  disputeSvc,
		OrderSvc:    orderSvc,
		OperatorSvc: operatorSvc,
		Hub:         hub,
	})
	if err != nil {
		log.WithError(err).Fatal("error while setting up http interface")
	}
	if err := httpSvc.Start(); err != nil {
		log.WithError(err).Fatal("error while starting http interface")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Debug("shutting down")
	httpSvc.Stop()
	pubsubSvc.Close()
	repoManager.Close()
	log.Debug("exiting")
}

func initLogger() {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	if logFile := config.GetString(config.LogFileKey); len(logFile) > 0 {
		fileLogger := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stderr, fileLogger))
	}
}

func openRepoManager(dbDir string) (ports.RepoManager, error) {
	if len(dbDir) <= 0 {
		return inmemory.NewRepoManager(), nil
	}
	return dbbadger.NewRepoManager(dbDir, nil)
}

func openLedger() (ports.AssetLedger, error) {
	if genesis := config.GetString(config.LedgerGenesisKey); len(genesis) > 0 {
		return ledger.NewLedgerFromGenesisFile(genesis)
	}
	return ledger.NewInProcessLedger(), nil
}
