package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/mobiwave/mobiwave-gateway/internal/campaign"
	"github.com/mobiwave/mobiwave-gateway/internal/kafka"
	"github.com/mobiwave/mobiwave-gateway/internal/model"
)

// Sender consumes dispatch envelopes from Kafka and executes the scheduled
// campaign sends. Delivery is at-least-once; the orchestrator's status CAS
// makes duplicate envelopes no-ops.
type Sender struct {
	Consumer *kafka.Consumer
	Orch     *campaign.Orchestrator
	Workers  int
}

func NewSender(consumer *kafka.Consumer, orch *campaign.Orchestrator, workers int) *Sender {
	if workers <= 0 {
		workers = 4
	}
	return &Sender{Consumer: consumer, Orch: orch, Workers: workers}
}

// Run blocks until ctx is cancelled.
func (w *Sender) Run(ctx context.Context) error {
	msgCh := make(chan kafka.Message, w.Workers*2)

	// fetcher
	go func() {
		defer close(msgCh)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				m, err := w.Consumer.Fetch(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("[sender] kafka fetch err: %v", err)
					time.Sleep(200 * time.Millisecond)
					continue
				}
				msgCh <- m
			}
		}
	}()

	for i := 0; i < w.Workers; i++ {
		go w.runProcessor(ctx, msgCh)
	}

	<-ctx.Done()
	return ctx.Err()
}

func (w *Sender) runProcessor(ctx context.Context, in <-chan kafka.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			w.processOne(ctx, m)
		}
	}
}

func (w *Sender) processOne(ctx context.Context, m kafka.Message) {
	var env model.DispatchEnvelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.CampaignID == "" {
		// poison message: commit and skip
		_ = w.Consumer.Commit(ctx, m)
		if err != nil {
			log.Printf("[sender] bad envelope json: %v", err)
		} else {
			log.Printf("[sender] envelope missing campaign id")
		}
		return
	}

	if err := w.Orch.DispatchScheduled(ctx, env); err != nil {
		log.Printf("[sender] dispatch err for campaign %s: %v", env.CampaignID, err)
	}

	if err := w.Consumer.Commit(ctx, m); err != nil {
		log.Printf("[sender] commit err: %v", err)
	}
}
