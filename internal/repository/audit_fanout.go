package repository

import (
	"context"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"
	pkgkafka "SignalDesk/pkg/kafka"
	"SignalDesk/pkg/logger"
)

// AuditFanout writes every action to the primary trail and publishes it to a
// Kafka topic for downstream consumers. Publish failures are logged, not
// propagated: the durable trail is what the engine depends on.
type AuditFanout struct {
	primary  drepo.AuditTrail
	producer *pkgkafka.Producer
	topic    string
	logger   *logger.Logger
}

func NewAuditFanout(primary drepo.AuditTrail, producer *pkgkafka.Producer, topic string, lgr *logger.Logger) *AuditFanout {
	return &AuditFanout{primary: primary, producer: producer, topic: topic, logger: lgr}
}

func (f *AuditFanout) Append(ctx context.Context, a *models.SignalAction) error {
	if err := f.primary.Append(ctx, a); err != nil {
		return err
	}
	if f.producer != nil {
		if err := f.producer.Publish(ctx, f.topic, []byte(a.SignalID), a); err != nil {
			f.logger.Warn("audit publish failed",
				logger.String("signal_id", a.SignalID),
				logger.Error(err),
			)
		}
	}
	return nil
}

func (f *AuditFanout) ListBySignal(ctx context.Context, signalID string) ([]*models.SignalAction, error) {
	return f.primary.ListBySignal(ctx, signalID)
}
