package scylla

import (
	"errors"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/spf13/viper"
)

const (
	contactPoints  = "_CONTACT_POINTS"
	port           = "_PORT"
	keyspace       = "_KEYSPACE"
	username       = "_USERNAME"
	password       = "_PASSWORD"
	numConnections = "_NUM_CONNECTIONS"
	timeoutInMs    = "_TIMEOUT_IN_MS"
)

// BuildClusterConfigFromEnv builds a gocql ClusterConfig from env vars with the
// given prefix. Contact points, port and keyspace are required; auth and tuning
// fields are optional.
func BuildClusterConfigFromEnv(envPrefix string) (*gocql.ClusterConfig, error) {
	if !viper.IsSet(envPrefix + contactPoints) {
		return nil, errors.New(envPrefix + contactPoints + " not set")
	}
	if !viper.IsSet(envPrefix + port) {
		return nil, errors.New(envPrefix + port + " not set")
	}
	if !viper.IsSet(envPrefix + keyspace) {
		return nil, errors.New(envPrefix + keyspace + " not set")
	}

	hosts := make([]string, 0)
	for _, h := range strings.Split(viper.GetString(envPrefix+contactPoints), ",") {
		if t := strings.TrimSpace(h); t != "" {
			hosts = append(hosts, t)
		}
	}

	cluster := gocql.NewCluster(hosts...)
	cluster.Port = viper.GetInt(envPrefix + port)
	cluster.Keyspace = viper.GetString(envPrefix + keyspace)
	cluster.Consistency = gocql.LocalQuorum

	if viper.IsSet(envPrefix + username) {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: viper.GetString(envPrefix + username),
			Password: viper.GetString(envPrefix + password),
		}
	}
	if viper.IsSet(envPrefix + numConnections) {
		cluster.NumConns = viper.GetInt(envPrefix + numConnections)
	}
	if viper.IsSet(envPrefix + timeoutInMs) {
		cluster.Timeout = time.Duration(viper.GetInt(envPrefix+timeoutInMs)) * time.Millisecond
	}
	return cluster, nil
}
