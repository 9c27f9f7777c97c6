package relay

import (
	"strings"

	wkafka "github.com/ThreeDotsLabs/watermill-kafka/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/code19m/errx"

	"github.com/rise-and-shine/actionrpc/observability/logger"
)

// KafkaConfig configures the Kafka publisher behind a Relay.
type KafkaConfig struct {
	// Brokers is a comma separated list of "host:port" addresses.
	Brokers  string `yaml:"brokers"   validate:"required"`
	ClientID string `yaml:"client_id"                     default:"actionrpc"`
}

// NewKafkaPublisher returns a synchronous watermill Kafka publisher that
// partitions messages by their partition key metadata, so results of equal
// actions keep their order.
func NewKafkaPublisher(cfg KafkaConfig, log logger.Logger) (message.Publisher, error) {
	saramaCfg := wkafka.DefaultSaramaSyncPublisherConfig()
	saramaCfg.ClientID = cfg.ClientID

	marshaler := wkafka.NewWithPartitioningMarshaler(PartitionKey)

	publisher, err := wkafka.NewPublisher(
		strings.Split(cfg.Brokers, ","),
		marshaler,
		saramaCfg,
		NewLoggerAdapter(log.Named("relay.kafka")),
	)
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return publisher, nil
}

// PartitionKey reads the partition key relayed messages carry in their
// metadata.
func PartitionKey(_ string, msg *message.Message) (string, error) {
	key := msg.Metadata.Get(MetadataPartitionKey)
	if key == "" {
		return "", errx.New("partition key is empty", errx.WithDetails(errx.D{"message_uuid": msg.UUID}))
	}
	return key, nil
}
