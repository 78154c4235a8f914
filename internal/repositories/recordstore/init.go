package recordstore

import (
	"sync"

	"github.com/reelstack/recoserve/pkg/scylla"
	"github.com/rs/zerolog/log"
)

const envPrefix = "STORAGE_RECORD_STORE"

var (
	store          Store
	once           sync.Once
	DefaultVersion = 1
)

func NewRepository(version int) Store {
	switch version {
	case DefaultVersion:
		return initScyllaStore()
	default:
		return nil
	}
}

func initScyllaStore() Store {
	once.Do(func() {
		cluster, err := scylla.BuildClusterConfigFromEnv(envPrefix)
		if err != nil {
			log.Panic().Err(err).Msg("failed to build record store cluster config")
		}
		session, err := cluster.CreateSession()
		if err != nil {
			log.Panic().Err(err).Msg("failed to create record store session")
		}
		store = newScyllaStore(session, cluster.Keyspace)
	})
	return store
}

// SetTestInstance sets the package-level store singleton. Use only in tests.
func SetTestInstance(s Store) {
	once.Do(func() {})
	store = s
}
