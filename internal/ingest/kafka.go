package ingest

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"addonwatch/internal/config"
	"addonwatch/internal/model"
	"addonwatch/internal/normalize"
	"addonwatch/internal/storage"
)

type kafkaSubmission struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Notes  string `json:"notes"`
	Source string `json:"source"`
	Addons []struct {
		AddonName string `json:"addon_name"`
		Severity  int    `json:"severity"`
	} `json:"addons"`
}

// StartKafka consumes community submissions from a topic (e.g. bridged
// from a community bot) and stores them as pending rows in the same
// review queue the HTTP endpoint feeds. Malformed messages are dropped,
// not retried.
func StartKafka(ctx context.Context, cfg *config.Manager, store storage.Store, logger *slog.Logger) {
	current := cfg.Get().Ingest.Kafka
	if !current.Enabled {
		if logger != nil {
			logger.Info("kafka ingest disabled")
		}
		return
	}
	if logger != nil {
		logger.Info("kafka ingest enabled", "brokers", current.Brokers, "topic", current.Topic, "group_id", current.GroupID)
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  current.Brokers,
		Topic:    current.Topic,
		GroupID:  current.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	go func() {
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if logger != nil {
					logger.Warn("kafka read error", "err", err)
				}
				continue
			}
			sub, ok := parseSubmission(m.Value)
			if !ok {
				if logger != nil {
					logger.Warn("kafka submission dropped", "offset", m.Offset)
				}
				continue
			}
			if _, err := store.InsertSubmission(ctx, sub); err != nil {
				if logger != nil {
					logger.Warn("kafka submission store error", "err", err)
				}
			}
		}
	}()
}

func parseSubmission(data []byte) (model.Submission, bool) {
	var msg kafkaSubmission
	if err := json.Unmarshal(data, &msg); err != nil {
		return model.Submission{}, false
	}
	url, err := normalize.HTTPURL(msg.URL)
	if err != nil {
		return model.Submission{}, false
	}
	addons := make([]model.SubmissionImpact, 0, len(msg.Addons))
	for _, a := range msg.Addons {
		name := normalize.AddonName(a.AddonName)
		if name == "" {
			continue
		}
		addons = append(addons, model.SubmissionImpact{
			AddonName: name,
			Severity:  normalize.ClampScore(a.Severity),
		})
	}
	if len(addons) == 0 {
		return model.Submission{}, false
	}
	source := msg.Source
	if source == "" {
		source = "kafka"
	}
	return model.Submission{
		URL:       url,
		Title:     normalize.Text(msg.Title, 200),
		Notes:     normalize.Text(msg.Notes, 1000),
		Status:    model.SubmissionPending,
		UserAgent: source,
		Addons:    addons,
	}, true
}
