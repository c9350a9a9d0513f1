package kafkautils

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// Config describes the topics the service needs before its producer starts,
// typically just the transfer.completed event topic.
type Config struct {
	BootstrapServers string
	Topics           []TopicSpec
}

// TopicSpec is one topic to ensure. NumPartitions must match the publisher's
// partitioning scheme (source-account hash modulo partition count), otherwise
// per-account event ordering breaks.
type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	Config            map[string]string
}

// EnsureTopics creates the configured topics if they do not exist yet.
// Brokers are often still coming up alongside the service, so creation is
// retried with exponential backoff for up to two minutes. A topic that
// already exists is not an error.
func EnsureTopics(logger *zap.Logger, ctx context.Context, cnf Config) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{"bootstrap.servers": cnf.BootstrapServers})
	if err != nil {
		return fmt.Errorf("failed to create kafka admin client: %w", err)
	}
	defer admin.Close()

	specs := make([]kafka.TopicSpecification, 0, len(cnf.Topics))
	for _, topic := range cnf.Topics {
		specs = append(specs, kafka.TopicSpecification{
			Topic:             topic.Name,
			NumPartitions:     topic.NumPartitions,
			ReplicationFactor: topic.ReplicationFactor,
			Config:            topic.Config,
		})
	}

	create := func() error {
		results, err := admin.CreateTopics(ctx, specs, kafka.SetAdminOperationTimeout(30*time.Second))
		if err != nil {
			return fmt.Errorf("failed to create topics: %w", err)
		}
		for _, result := range results {
			if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
				return fmt.Errorf("kafka topic %s creation failed: %v", result.Topic, result.Error)
			}
			logger.Info("kafka topic ready", zap.String("topic", result.Topic))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	return backoff.Retry(create, b)
}
