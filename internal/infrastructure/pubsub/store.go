package pubsub

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/timshannon/badgerhold/v4"

	"github.com/escrow-network/escrowd/internal/core/ports"
)

// store persists the subscriptions on a dedicated badgerhold store so that
// they survive daemon restarts. An empty dbDir keeps the store in memory.
type store struct {
	db *badgerhold.Store
}

func newStore(dbDir string, logger badger.Logger) (store, error) {
	var webhookDir string
	if len(dbDir) > 0 {
		webhookDir = filepath.Join(dbDir, "webhooks")
	}

	db, err := createDb(webhookDir, logger)
	if err != nil {
		return store{}, fmt.Errorf("opening webhooks db: %w", err)
	}
	return store{db}, nil
}

func (s store) Init() error {
	return nil
}

func (s store) Close() error {
	return s.db.Close()
}

func (s store) addSubscription(sub *Subscription) error {
	if err := s.db.Insert(sub.ID, *sub); err != nil {
		if err == badgerhold.ErrKeyExists {
			return nil
		}
		return err
	}
	return nil
}

func (s store) getSubscription(id string) (*Subscription, error) {
	var sub Subscription
	if err := s.db.Get(id, &sub); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (s store) removeSubscription(id string) error {
	if err := s.db.Delete(id, Subscription{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return err
	}
	return nil
}

func (s store) listSubscriptions(topic string) subscriptions {
	var query *badgerhold.Query
	if topic != ports.UnspecifiedTopic {
		query = badgerhold.Where("Event").Eq(topic)
	}

	var subs subscriptions
	if err := s.db.Find(&subs, query); err != nil {
		return nil
	}

	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].ID < subs[j].ID
	})
	return subs
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

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
