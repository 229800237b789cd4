package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"virtual_persona_bot/internal/app"
)

// FleetScheduler drives the three recurring passes: the daily token reset,
// the hourly publish pass and the frequent interaction pass. Each job runs
// under its own timeout so a stuck datastore cannot pile up invocations.
type FleetScheduler struct {
	cronEngine   *cron.Cron
	reset        *app.ResetService
	posting      *app.PostingService
	interactions *app.InteractionService
	logger       *logrus.Entry

	specTokenReset   string // e.g. "0 0 * * *" (midnight daily)
	specPublish      string // e.g. "10 * * * *" (hourly)
	specInteractions string // e.g. "*/5 * * * *"
}

func NewFleetScheduler(
	reset *app.ResetService,
	posting *app.PostingService,
	interactions *app.InteractionService,
	logger *logrus.Entry,
	specTokenReset string,
	specPublish string,
	specInteractions string,
) *FleetScheduler {
	return &FleetScheduler{
		cronEngine:       cron.New(cron.WithLocation(time.Local)),
		reset:            reset,
		posting:          posting,
		interactions:     interactions,
		logger:           logger,
		specTokenReset:   specTokenReset,
		specPublish:      specPublish,
		specInteractions: specInteractions,
	}
}

func (s *FleetScheduler) Start() error {
	s.logger.Info("Starting fleet scheduler")

	if _, err := s.cronEngine.AddFunc(s.specTokenReset, func() {
		s.logger.Info("Cron triggered: daily token reset")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if summary, err := s.reset.RunDailyReset(ctx); err != nil {
			s.logger.WithError(err).Error("Daily reset job failed")
		} else {
			s.logger.WithFields(logrus.Fields{
				"allocated": summary.Allocation.TotalAllocated,
				"skipped":   summary.Allocation.Skipped,
			}).Info("Daily reset job finished")
		}
	}); err != nil {
		return err
	}

	if _, err := s.cronEngine.AddFunc(s.specPublish, func() {
		s.logger.Info("Cron triggered: publish pass")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if result, err := s.posting.RunPublishPass(ctx); err != nil {
			s.logger.WithError(err).Error("Publish job failed")
		} else {
			s.logger.WithFields(logrus.Fields{
				"published": result.Published,
				"failed":    result.Failed,
			}).Info("Publish job finished")
		}
	}); err != nil {
		return err
	}

	if _, err := s.cronEngine.AddFunc(s.specInteractions, func() {
		s.logger.Info("Cron triggered: interaction pass")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if result, err := s.interactions.RunInteractionPass(ctx); err != nil {
			s.logger.WithError(err).Error("Interaction job failed")
		} else {
			s.logger.WithFields(logrus.Fields{
				"succeeded": result.Succeeded,
				"skipped":   result.Skipped,
				"failed":    result.Failed,
			}).Info("Interaction job finished")
		}
	}); err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.Info("Fleet scheduler started with jobs")
	return nil
}

func (s *FleetScheduler) Stop() {
	s.logger.Info("Stopping fleet scheduler")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Fleet scheduler gracefully stopped")
}
