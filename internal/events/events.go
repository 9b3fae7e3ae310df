// Package events publishes finished reports to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/MimoJanra/DomainReport/internal/models"
)

const EventReportCompleted = "report.completed"

// ReportEvent is the message value; the message key is the domain so all
// reports of one domain land on the same partition.
type ReportEvent struct {
	Type     string              `json:"type"`
	StoredID int                 `json:"storedId"`
	DomainID int                 `json:"domainId"`
	Report   models.DomainReport `json:"report"`
}

type Publisher interface {
	PublishReport(ctx context.Context, report models.StoredReport) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}, topic, logger)
}

func newProducer(w messageWriter, topic string, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{writer: w, topic: topic, logger: logger}
}

func (p *Producer) PublishReport(ctx context.Context, stored models.StoredReport) error {
	payload, err := json.Marshal(ReportEvent{
		Type:     EventReportCompleted,
		StoredID: stored.ID,
		DomainID: stored.DomainID,
		Report:   stored.Report,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(stored.Report.Domain),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventReportCompleted)},
			{Key: "report-id", Value: []byte(stored.ReportID)},
		},
	}); err != nil {
		return fmt.Errorf("failed to publish report %s: %w", stored.ReportID, err)
	}

	p.logger.Debug("report published",
		zap.String("topic", p.topic),
		zap.String("domain", stored.Report.Domain),
		zap.String("report_id", stored.ReportID),
	)
	return nil
}

func (p *Producer) Topic() string { return p.topic }

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Nop discards events; used when no brokers are configured.
type Nop struct{}

func (Nop) PublishReport(context.Context, models.StoredReport) error { return nil }
func (Nop) Close() error                                             { return nil }
