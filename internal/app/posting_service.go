package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"virtual_persona_bot/internal/domain/community"
	"virtual_persona_bot/internal/domain/generation"
	"virtual_persona_bot/internal/domain/persona"
	"virtual_persona_bot/internal/domain/queue"
	idb "virtual_persona_bot/internal/infra/database"
	"virtual_persona_bot/internal/infra/monitoring"
)

// PublishResult details one persona's publishing attempt.
type PublishResult struct {
	PersonaID   string `json:"persona_id"`
	Username    string `json:"username"`
	QueueItemID string `json:"queue_item_id,omitempty"`
	ScheduleID  string `json:"schedule_id,omitempty"`
	PostID      string `json:"post_id,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Success     bool   `json:"success"`
	Skipped     bool   `json:"skipped"`
	Step        string `json:"step,omitempty"` // step that failed or skip reason
	Error       string `json:"error,omitempty"`
}

// PublishRunResult is the aggregate outcome of one publish pass.
type PublishRunResult struct {
	Published  int             `json:"published"`
	Failed     int             `json:"failed"`
	Skipped    int             `json:"skipped"`
	Results    []PublishResult `json:"results"`
	QueueStats *queue.Stats    `json:"queue_stats,omitempty"`
}

// PostingService turns eligible (persona, queue item) pairings into published
// community posts. Every queue item reaches exactly one terminal state and a
// token is consumed only on the completed path.
type PostingService struct {
	tokens        *TokenService
	queueRepo     queue.Repository
	scheduleRepo  queue.ScheduleRepository
	communityRepo community.Repository
	images        generation.ImageGenerator
	logger        *logrus.Entry

	batchSize int
	pacing    time.Duration
	now       func() time.Time
}

func NewPostingService(
	tokens *TokenService,
	qr queue.Repository,
	sr queue.ScheduleRepository,
	cr community.Repository,
	images generation.ImageGenerator,
	logger *logrus.Entry,
	batchSize int,
) *PostingService {
	return &PostingService{
		tokens:        tokens,
		queueRepo:     qr,
		scheduleRepo:  sr,
		communityRepo: cr,
		images:        images,
		logger:        logger,
		batchSize:     batchSize,
		pacing:        time.Second,
		now:           time.Now,
	}
}

// RunPublishPass executes one bounded publishing batch. Per-persona failures
// are isolated; only infrastructure failure on the initial reads aborts the
// whole invocation.
func (s *PostingService) RunPublishPass(ctx context.Context) (*PublishRunResult, error) {
	stats, err := s.queueRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue stats: %w", err)
	}
	result := &PublishRunResult{QueueStats: stats}

	if stats.Pending == 0 {
		s.logger.Info("No pending queue items, skipping publish pass")
		return result, nil
	}

	ready, err := s.tokens.PersonasReadyToPost(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to select ready personas: %w", err)
	}
	if len(ready) == 0 {
		s.logger.Info("No personas ready to post at this time")
		return result, nil
	}

	batch := ready
	if len(batch) > s.batchSize {
		batch = batch[:s.batchSize]
	}
	s.logger.WithFields(logrus.Fields{"ready": len(ready), "batch": len(batch)}).Info("Starting publish batch")

	for i, p := range batch {
		res := s.publishForPersona(ctx, p)
		result.Results = append(result.Results, res)
		switch {
		case res.Success:
			result.Published++
		case res.Skipped:
			result.Skipped++
		default:
			result.Failed++
		}

		if i < len(batch)-1 {
			if err := sleepCtx(ctx, s.pacing); err != nil {
				s.logger.Warn("Publish pass cancelled, returning partial results")
				return result, nil
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"published": result.Published,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
	}).Info("Publish pass completed")

	return result, nil
}

func (s *PostingService) publishForPersona(ctx context.Context, p *persona.Persona) PublishResult {
	res := PublishResult{PersonaID: p.ID, Username: p.Username}
	log := s.logger.WithFields(logrus.Fields{"persona_id": p.ID, "username": p.Username})

	// 1. Claim a matching queue item. The pending -> assigned transition is
	// atomic, so a repeated pass can never pick up the same item twice.
	item, err := s.queueRepo.ClaimMatchingForCategory(ctx, p.Category, p.ID)
	if err != nil {
		if errors.Is(err, idb.ErrItemNotFound) {
			res.Skipped = true
			res.Step = "no_matching_item"
			return res
		}
		log.WithError(err).Error("Failed to claim queue item")
		res.Step = "claim_item"
		res.Error = err.Error()
		monitoring.PostsFailed.Inc()
		return res
	}
	res.QueueItemID = item.ID
	log = log.WithField("queue_item_id", item.ID)

	// 2. Commit point: record the attempt before any external call. A crash
	// from here on leaves a processing row for the reconciliation sweep.
	rec := &queue.ScheduleRecord{
		ID:            uuid.NewString(),
		PersonaID:     p.ID,
		PromptQueueID: item.ID,
		Status:        queue.ScheduleProcessing,
	}
	if err := s.scheduleRepo.Create(ctx, rec); err != nil {
		log.WithError(err).Error("Failed to create post schedule record")
		s.markItemFailed(ctx, item.ID, fmt.Sprintf("schedule record creation failed: %v", err))
		res.Step = "create_schedule"
		res.Error = err.Error()
		monitoring.PostsFailed.Inc()
		return res
	}
	res.ScheduleID = rec.ID
	if err := s.queueRepo.MarkProcessing(ctx, item.ID); err != nil {
		log.WithError(err).Warn("Failed to mark queue item processing")
	}

	prompt := cleanPromptText(item.Prompt)

	// 3. Generate the image. A collaborator failure fails the item; the
	// persona is not charged a token for an attempt that produced nothing.
	imageURL, err := s.images.GenerateImage(ctx, generation.ImageRequest{Prompt: prompt, Category: p.Category})
	if err != nil {
		log.WithError(err).Error("Image generation failed")
		s.markItemFailed(ctx, item.ID, fmt.Sprintf("image generation failed: %v", err))
		s.markScheduleFailed(ctx, rec.ID, err.Error())
		res.Step = "generate_image"
		res.Error = err.Error()
		monitoring.PostsFailed.Inc()
		return res
	}
	res.ImageURL = imageURL

	// 4. Create the community post attributed to the persona.
	post := &community.Post{
		ID:          uuid.NewString(),
		UserID:      p.UserID,
		Title:       titleFromPrompt(item.Prompt),
		Prompt:      prompt,
		ImageURL:    imageURL,
		Category:    p.Category,
		Status:      "published",
		PublishedAt: s.now(),
	}
	if err := s.communityRepo.CreatePost(ctx, post); err != nil {
		log.WithError(err).Error("Post creation failed")
		s.markItemFailed(ctx, item.ID, fmt.Sprintf("post creation failed: %v", err))
		s.markScheduleFailed(ctx, rec.ID, err.Error())
		res.Step = "create_post"
		res.Error = err.Error()
		monitoring.PostsFailed.Inc()
		return res
	}
	res.PostID = post.ID

	// 5. The publish succeeded: consume the token and close out both records.
	if err := s.tokens.ConsumeToken(ctx, p.ID); err != nil {
		if errors.Is(err, idb.ErrInsufficientTokens) {
			// The eligibility check saw a positive balance; losing the race
			// here means a concurrent publish spent the last token after the
			// post already went out. Worth an alarm, not a rollback.
			log.Warn("Token balance hit zero between eligibility and consume")
		} else {
			log.WithError(err).Error("Token consumption failed after successful publish")
		}
	}

	if err := s.queueRepo.MarkCompleted(ctx, item.ID, post.ID); err != nil {
		log.WithError(err).Error("Failed to mark queue item completed")
	}
	if err := s.scheduleRepo.MarkCompleted(ctx, rec.ID, post.ID, imageURL); err != nil {
		log.WithError(err).Error("Failed to mark post schedule completed")
	}

	monitoring.PostsPublished.Inc()
	log.WithField("post_id", post.ID).Info("Published persona post")
	res.Success = true
	return res
}

func (s *PostingService) markItemFailed(ctx context.Context, itemID, msg string) {
	if err := s.queueRepo.MarkFailed(ctx, itemID, msg); err != nil {
		s.logger.WithError(err).WithField("queue_item_id", itemID).Error("Failed to mark queue item failed")
	}
}

func (s *PostingService) markScheduleFailed(ctx context.Context, scheduleID, msg string) {
	if err := s.scheduleRepo.MarkFailed(ctx, scheduleID, msg); err != nil {
		s.logger.WithError(err).WithField("schedule_id", scheduleID).Error("Failed to mark post schedule failed")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
