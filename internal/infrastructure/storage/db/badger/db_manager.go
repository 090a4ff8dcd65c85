package dbbadger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"

	"github.com/escrow-network/escrowd/internal/core/domain"
	"github.com/escrow-network/escrowd/internal/core/ports"
)

// repoManager holds all the badgerhold stores in a single data structure and
// exposes the repositories built on top of them. Trades and settings share a
// store so that the id counter, the trade records and the settings record
// commit through the same keyspace, while signed-order fill state gets a
// dedicated one.
type repoManager struct {
	mainStore  *badgerhold.Store
	orderStore *badgerhold.Store

	tradeRepository    domain.TradeRepository
	orderRepository    domain.OrderRepository
	settingsRepository domain.SettingsRepository
}

// NewRepoManager opens (or creates if not existing) the badger stores under
// the given base data dir and returns the repo manager built on them. An
// empty dir makes the stores live in memory, which is useful for testing.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	var mainDir, orderDir string
	if len(baseDbDir) > 0 {
		mainDir = filepath.Join(baseDbDir, "trades")
		orderDir = filepath.Join(baseDbDir, "orders")
	}

	mainStore, err := createDb(mainDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening trades db: %w", err)
	}

	orderStore, err := createDb(orderDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening orders db: %w", err)
	}

	return &repoManager{
		mainStore:          mainStore,
		orderStore:         orderStore,
		tradeRepository:    NewTradeRepositoryImpl(mainStore),
		orderRepository:    NewOrderRepositoryImpl(orderStore),
		settingsRepository: NewSettingsRepositoryImpl(mainStore),
	}, nil
}

func (d *repoManager) TradeRepository() domain.TradeRepository {
	return d.tradeRepository
}

func (d *repoManager) OrderRepository() domain.OrderRepository {
	return d.orderRepository
}

func (d *repoManager) SettingsRepository() domain.SettingsRepository {
	return d.settingsRepository
}

func (d *repoManager) Close() {
	d.mainStore.Close()
	d.orderStore.Close()
}

// JSONEncode is a custom JSON based encoder for badger
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer

	en := json.NewEncoder(&buff)

	err := en.Encode(value)
	if err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger
func JSONDecode(data []byte, value interface{}) error {
	var buff bytes.Buffer
	de := json.NewDecoder(&buff)

	_, err := buff.Write(data)
	if err != nil {
		return err
	}

	return de.Decode(value)
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)

		go func() {
			for {
				<-ticker.C
				if err := db.Badger().RunValueLogGC(0.5); err != nil &&
					err != badger.ErrNoRewrite {
					log.Error(err)
				}
			}
		}()
	}

	return db, nil
}
