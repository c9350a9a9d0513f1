package services

import (
	"context"
	"encoding/json"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/fundmesh/transfer-service/configs"
	kafkautils "github.com/fundmesh/transfer-service/pkg/kafka"
	"github.com/fundmesh/transfer-service/pkg/views"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransferPublisher emits transfer lifecycle events after commit. Publishing
// is fire-and-forget: a broker outage never fails a committed transfer.
type TransferPublisher interface {
	PublishTransferCompleted(event views.TransferCompletedEvent) error
	Close()
}

type KafkaPublisherImpl struct {
	logger   *zap.Logger
	producer *kafka.Producer
	cnf      *configs.Config
}

// NewKafkaPublisher creates and initializes a TransferPublisher with the provided logger and configuration parameters.
func NewKafkaPublisher(logger *zap.Logger, ctx context.Context, cnf *configs.Config) TransferPublisher {
	// Ensure the event topic exists before the producer starts
	topicConfig := kafkautils.Config{
		BootstrapServers: cnf.KafkaBrokers,
		Topics: []kafkautils.TopicSpec{
			{
				Name:              cnf.KafkaTopic,
				NumPartitions:     int(cnf.KafkaPartition),
				ReplicationFactor: 1,
				Config: map[string]string{
					"cleanup.policy": "delete",
				},
			},
		},
	}
	err := kafkautils.EnsureTopics(logger, ctx, topicConfig)
	if err != nil {
		logger.Fatal("failed to initialize kafka topics", zap.Error(err))
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  cnf.KafkaBrokers, // Kafka broker(s)
		"acks":               "all",            // Wait for all replicas
		"enable.idempotence": "true",           // Ensure messages are not sent twice
		"retries":            "1",              // Built-in retry mechanism
	})
	if err != nil {
		logger.Fatal("failed to create kafka producer", zap.Error(err))
	}
	logger.Info("kafka producer created successfully", zap.String("brokers", cnf.KafkaBrokers))
	go handleDeliveryReports(logger, p) // Async error handling
	return &KafkaPublisherImpl{
		logger:   logger,
		cnf:      cnf,
		producer: p,
	}
}

func (k KafkaPublisherImpl) PublishTransferCompleted(event views.TransferCompletedEvent) error {
	// Serialize the event payload to JSON for Kafka transport
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Deterministic partitioning by source account so events touching the
	// same account stay ordered within a partition.
	fromID, err := uuid.Parse(event.FromAccountID)
	if err != nil {
		return err
	}
	partition := int32(fromID.ID() % k.cnf.KafkaPartition)

	// Produce the message asynchronously; delivery results are handled by handleDeliveryReports
	return k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &k.cnf.KafkaTopic,
			Partition: partition, // target partition for ordering/affinity
		},
		Key:   []byte(event.TransferID),
		Value: msgBytes,
	}, nil)
}

func (k KafkaPublisherImpl) Close() {
	k.producer.Close()
}

func handleDeliveryReports(logger *zap.Logger, p *kafka.Producer) {
	for e := range p.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				logger.Error("failed to publish message", zap.Error(ev.TopicPartition.Error))
			}
		}
	}
}

// NoopPublisher is used when no Kafka brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishTransferCompleted(views.TransferCompletedEvent) error { return nil }
func (NoopPublisher) Close()                                                      {}
