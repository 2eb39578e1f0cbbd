package audit

import (
	"context"
	"encoding/json"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// KafkaRecorder publishes decisions to a Kafka topic for the audit trail.
// The writer is async with no required acks; a lost audit message must not
// cost an order.
type KafkaRecorder struct {
	w      *kafka.Writer
	logger *zap.Logger
}

func NewKafkaRecorder(cfg KafkaConfig, logger *zap.Logger) *KafkaRecorder {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireNone,
		Async:                  true,
	}
	return &KafkaRecorder{w: w, logger: logger}
}

func (r *KafkaRecorder) Record(ctx context.Context, d *model.Decision) {
	data, err := json.Marshal(d)
	if err != nil {
		r.logger.Warn("marshal decision failed", zap.Error(err))
		return
	}
	if err := r.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(d.CorrelationID),
		Value: data,
	}); err != nil {
		r.logger.Warn("publish decision failed", zap.Error(err))
	}
}

func (r *KafkaRecorder) Close() error {
	return r.w.Close()
}
