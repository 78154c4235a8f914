package metric

import (
	"sync"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	defaultAgentAddr   = "localhost:8125"
	defaultSamplingRat = 1.0
)

var (
	client       statsd.ClientInterface
	samplingRate = defaultSamplingRat
	serviceTag   string
	once         sync.Once
)

// Init creates the statsd client. Agent address and sampling rate are read
// from METRIC_AGENT_ADDR and METRIC_SAMPLING_RATE; both are optional.
func Init() {
	once.Do(func() {
		addr := defaultAgentAddr
		if viper.IsSet("METRIC_AGENT_ADDR") {
			addr = viper.GetString("METRIC_AGENT_ADDR")
		}
		if viper.IsSet("METRIC_SAMPLING_RATE") {
			samplingRate = viper.GetFloat64("METRIC_SAMPLING_RATE")
		}
		serviceTag = TagAsString(TagService, viper.GetString("APP_NAME"))
		c, err := statsd.New(addr)
		if err != nil {
			log.Error().Err(err).Msgf("Failed to create statsd client for %s, metrics disabled", addr)
			client = &statsd.NoOpClient{}
			return
		}
		client = c
	})
}

// SetTestClient replaces the statsd client. Use only in tests.
func SetTestClient(c statsd.ClientInterface) {
	once.Do(func() {})
	client = c
}

func withServiceTag(tags []string) []string {
	if serviceTag == "" {
		return tags
	}
	return append(tags, serviceTag)
}

func Incr(name string, tags []string) {
	if client == nil {
		return
	}
	_ = client.Incr(name, withServiceTag(tags), samplingRate)
}

func Count(name string, value int64, tags []string) {
	if client == nil {
		return
	}
	_ = client.Count(name, value, withServiceTag(tags), samplingRate)
}

func Timing(name string, value time.Duration, tags []string) {
	if client == nil {
		return
	}
	_ = client.Timing(name, value, withServiceTag(tags), samplingRate)
}

func Gauge(name string, value float64, tags []string) {
	if client == nil {
		return
	}
	_ = client.Gauge(name, value, withServiceTag(tags), samplingRate)
}
