package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"RegimeModel/internal/domain/models"
	pkgkafka "RegimeModel/pkg/kafka"
)

// KafkaReportPublisher sends performance reports as JSON keyed by symbol.
type KafkaReportPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaReportPublisher(p *pkgkafka.Producer, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: p, topic: topic}
}

type reportMetric struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"` // null when undefined
}

type reportMessage struct {
	RunID     string         `json:"run_id"`
	Symbol    string         `json:"symbol"`
	Samples   int            `json:"samples"`
	Regimes   int            `json:"regimes"`
	Generated time.Time      `json:"generated"`
	Metrics   []reportMetric `json:"metrics"`
}

// EncodeReport renders r as JSON. Non-finite metric values become null.
func EncodeReport(r *models.PerformanceReport) ([]byte, error) {
	msg := reportMessage{
		RunID:     r.RunID,
		Symbol:    r.Symbol,
		Samples:   r.Samples,
		Regimes:   r.Regimes,
		Generated: r.Generated,
		Metrics:   make([]reportMetric, len(r.Metrics)),
	}
	for i, m := range r.Metrics {
		msg.Metrics[i].Name = m.Name
		if !math.IsNaN(m.Value) && !math.IsInf(m.Value, 0) {
			v := m.Value
			msg.Metrics[i].Value = &v
		}
	}
	return json.Marshal(msg)
}

func (p *KafkaReportPublisher) PublishReport(ctx context.Context, r *models.PerformanceReport) error {
	b, err := EncodeReport(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return p.producer.Publish(ctx, p.topic, []byte(r.Symbol), b)
}
