package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
)

const (
	// Subject carries freshly scraped faculty records.
	Subject = "faculty.ingest"
	// DLQSubject receives records that failed MaxRetries times.
	DLQSubject = "faculty.ingest.dlq"
	// MaxRetries before a record is parked on the DLQ.
	MaxRetries = 3

	retryHeader = "X-Retry-Count"
)

// dlqMessage is published to the DLQ on repeated failure.
type dlqMessage struct {
	Record  domain.Faculty `json:"record"`
	Error   string         `json:"error"`
	Retries int            `json:"retries"`
}

// StartConsumer subscribes to the ingest subject and runs each record
// through the pipeline, re-publishing failures with an incremented retry
// header and parking them on the DLQ after MaxRetries.
//
// Streamed records arrive with ids already assigned by the scraper run;
// Prepare's renumbering only applies to batch imports.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	pipeline := NewPipeline(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(Subject, func(msg *nats.Msg) {
		var f domain.Faculty
		if err := json.Unmarshal(msg.Data, &f); err != nil {
			log.Error("ingest: unmarshal failed", "err", err)
			return
		}

		ctx := context.Background()

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get(retryHeader); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		id, err := pipeline(ctx, f).Unwrap()
		if err == nil {
			log.Info("ingest: stored", "id", id)
			return
		}

		retries++
		log.Error("ingest: pipeline failed", "name", f.Name, "retry", retries, "err", err)

		if retries >= MaxRetries {
			data, _ := json.Marshal(dlqMessage{Record: f, Error: err.Error(), Retries: retries})
			if err := nc.Publish(DLQSubject, data); err != nil {
				log.Error("ingest: DLQ publish failed", "err", err)
			}
			return
		}

		retry := nats.NewMsg(Subject)
		retry.Data = msg.Data
		retry.Header = nats.Header{}
		retry.Header.Set(retryHeader, fmt.Sprintf("%d", retries))
		if err := nc.PublishMsg(retry); err != nil {
			log.Error("ingest: retry publish failed", "err", err)
		}
	})
}
