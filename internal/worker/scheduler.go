package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/mobiwave/mobiwave-gateway/internal/model"
	"github.com/mobiwave/mobiwave-gateway/internal/repository"
)

// Scheduler polls for due scheduled jobs and stages dispatch envelopes in the
// outbox, where the CDC relay publishes them to Kafka. Claiming uses
// FOR UPDATE SKIP LOCKED so multiple scheduler replicas never double-fire.
type Scheduler struct {
	Schedules repository.SchedulesRepository
	Campaigns repository.CampaignsRepository
	Outbox    repository.OutboxRepository

	Topic        string
	PollInterval time.Duration
	BatchSize    int
}

func NewScheduler(
	schedules repository.SchedulesRepository,
	campaigns repository.CampaignsRepository,
	outbox repository.OutboxRepository,
	topic string,
	pollInterval time.Duration,
	batchSize int,
) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Scheduler{
		Schedules:    schedules,
		Campaigns:    campaigns,
		Outbox:       outbox,
		Topic:        topic,
		PollInterval: pollInterval,
		BatchSize:    batchSize,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	tick := time.NewTicker(s.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	jobs, err := s.Schedules.ClaimDue(ctx, s.BatchSize)
	if err != nil {
		log.Printf("[scheduler] claim err: %v", err)
		return
	}

	for _, job := range jobs {
		if err := s.stage(ctx, job); err != nil {
			log.Printf("[scheduler] stage err for job %d: %v", job.ID, err)
			if err := s.Schedules.MarkFailed(ctx, job.ID); err != nil {
				log.Printf("[scheduler] mark failed err for job %d: %v", job.ID, err)
			}
			continue
		}
		if err := s.Schedules.MarkProcessed(ctx, job.ID); err != nil {
			log.Printf("[scheduler] mark processed err for job %d: %v", job.ID, err)
		}
	}

	if len(jobs) > 0 {
		log.Printf("[scheduler] staged %d due campaigns", len(jobs))
	}
}

func (s *Scheduler) stage(ctx context.Context, job model.ScheduledJob) error {
	c, err := s.Campaigns.GetByID(ctx, job.CampaignID)
	if err != nil {
		return err
	}
	if c == nil {
		// campaign cancelled between claim and stage; nothing to publish
		return nil
	}

	payload, err := json.Marshal(model.DispatchEnvelope{
		CampaignID: c.ID,
		AccountID:  c.AccountID,
		JobID:      job.ID,
	})
	if err != nil {
		return err
	}

	return s.Outbox.Insert(ctx, nil, "campaign", c.ID, s.Topic, payload)
}
