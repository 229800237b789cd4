package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"virtual_persona_bot/internal/domain/community"
	"virtual_persona_bot/internal/domain/generation"
	"virtual_persona_bot/internal/domain/interaction"
	"virtual_persona_bot/internal/domain/persona"
	idb "virtual_persona_bot/internal/infra/database"
	"virtual_persona_bot/internal/infra/monitoring"
)

const (
	// minCommentConfidence drops generated comments the collaborator itself
	// is unsure about.
	minCommentConfidence = 0.6
	minCommentLength     = 5

	// replyToCommentChance is the share of comment interactions that reply
	// to the newest comment instead of the post itself.
	replyToCommentChance = 0.3

	recentPostsWindow = 20
	threadHistorySize = 5
)

// InteractionResult details one persona's interaction attempt.
type InteractionResult struct {
	PersonaID  string           `json:"persona_id"`
	Username   string           `json:"username"`
	Type       interaction.Type `json:"type,omitempty"`
	TargetPost string           `json:"target_post,omitempty"`
	TargetUser string           `json:"target_user,omitempty"`
	Success    bool             `json:"success"`
	Skipped    bool             `json:"skipped"`
	Reason     string           `json:"reason,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// InteractionRunResult is the aggregate outcome of one interaction pass.
type InteractionRunResult struct {
	Candidates int                 `json:"candidates"`
	Succeeded  int                 `json:"succeeded"`
	Skipped    int                 `json:"skipped"`
	Failed     int                 `json:"failed"`
	Results    []InteractionResult `json:"results"`
}

// InteractionService samples personas for organic-looking community
// interactions and executes them under the arbiter's gates. Each attempt is
// independent; one persona's failure never aborts the pass.
type InteractionService struct {
	personaRepo   persona.Repository
	communityRepo community.Repository
	arbiter       *ArbiterService
	comments      generation.CommentGenerator
	logger        *logrus.Entry

	batchSize  int
	multiplier float64 // global damper on per-tier reply probability

	now       func() time.Time
	randFloat func() float64
}

func NewInteractionService(
	pr persona.Repository,
	cr community.Repository,
	arbiter *ArbiterService,
	comments generation.CommentGenerator,
	logger *logrus.Entry,
	batchSize int,
	multiplier float64,
) *InteractionService {
	return &InteractionService{
		personaRepo:   pr,
		communityRepo: cr,
		arbiter:       arbiter,
		comments:      comments,
		logger:        logger,
		batchSize:     batchSize,
		multiplier:    multiplier,
		now:           time.Now,
		randFloat:     rand.Float64,
	}
}

// RunInteractionPass samples the active fleet and executes at most batchSize
// interactions. Interactions never spend posting tokens.
func (s *InteractionService) RunInteractionPass(ctx context.Context) (*InteractionRunResult, error) {
	personas, err := s.personaRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active personas: %w", err)
	}

	hour := s.now().Hour()
	candidates := make([]*persona.Persona, 0, len(personas))
	for _, p := range personas {
		if !p.InActiveHours(hour) {
			continue
		}
		cfg := persona.ConfigFor(p.ActivityLevel)
		if s.randFloat() >= cfg.ReplyProbability*s.multiplier {
			continue
		}
		candidates = append(candidates, p)
	}

	result := &InteractionRunResult{Candidates: len(candidates)}
	if len(candidates) == 0 {
		s.logger.Debug("No personas sampled for interactions this pass")
		return result, nil
	}

	batch := candidates
	if len(batch) > s.batchSize {
		batch = batch[:s.batchSize]
	}
	s.logger.WithFields(logrus.Fields{"candidates": len(candidates), "batch": len(batch)}).Info("Starting interaction batch")

	for _, p := range batch {
		res := s.interactForPersona(ctx, p)
		result.Results = append(result.Results, res)
		switch {
		case res.Success:
			result.Succeeded++
		case res.Skipped:
			result.Skipped++
		default:
			result.Failed++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"succeeded": result.Succeeded,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	}).Info("Interaction pass completed")

	return result, nil
}

func (s *InteractionService) interactForPersona(ctx context.Context, p *persona.Persona) InteractionResult {
	res := InteractionResult{PersonaID: p.ID, Username: p.Username}
	log := s.logger.WithFields(logrus.Fields{"persona_id": p.ID, "username": p.Username})

	posts, err := s.communityRepo.ListRecentPublished(ctx, recentPostsWindow, p.UserID)
	if err != nil {
		log.WithError(err).Error("Failed to load recent posts")
		res.Error = err.Error()
		return res
	}
	if len(posts) == 0 {
		res.Skipped = true
		res.Reason = "no_target_posts"
		return res
	}

	post := s.pickRecencyWeighted(posts)
	res.TargetPost = post.ID
	res.TargetUser = post.UserID

	typ := s.drawInteractionType()
	res.Type = typ
	log = log.WithFields(logrus.Fields{"type": typ, "post_id": post.ID})

	var outcome InteractionResult
	switch typ {
	case interaction.TypeComment:
		outcome = s.comment(ctx, log, p, post, res)
	case interaction.TypeFollow:
		outcome = s.follow(ctx, log, p, post, res)
	default:
		outcome = s.like(ctx, log, p, post, res)
	}

	switch {
	case outcome.Success:
		monitoring.Interactions.WithLabelValues(string(typ), "success").Inc()
	case outcome.Skipped:
		monitoring.Interactions.WithLabelValues(string(typ), "skipped").Inc()
	default:
		monitoring.Interactions.WithLabelValues(string(typ), "failed").Inc()
	}
	return outcome
}

// pickRecencyWeighted draws a post with weight proportional to recency: the
// newest post in a window of n is n times more likely than the oldest.
func (s *InteractionService) pickRecencyWeighted(posts []*community.Post) *community.Post {
	n := len(posts)
	total := n * (n + 1) / 2
	draw := s.randFloat() * float64(total)
	for i, p := range posts {
		draw -= float64(n - i)
		if draw < 0 {
			return p
		}
	}
	return posts[n-1]
}

// drawInteractionType splits interactions roughly 70% comments, 15% follows,
// 15% likes.
func (s *InteractionService) drawInteractionType() interaction.Type {
	r := s.randFloat()
	switch {
	case r < 0.70:
		return interaction.TypeComment
	case r < 0.85:
		return interaction.TypeFollow
	default:
		return interaction.TypeLike
	}
}

func (s *InteractionService) comment(ctx context.Context, log *logrus.Entry, p *persona.Persona, post *community.Post, res InteractionResult) InteractionResult {
	// Decide whether to reply to the newest comment rather than the post.
	var parent *community.Comment
	depth := 0
	if s.randFloat() < replyToCommentChance {
		c, err := s.communityRepo.NewestComment(ctx, post.ID)
		switch {
		case err == nil:
			d, derr := s.communityRepo.ThreadDepth(ctx, c.ID)
			if derr != nil {
				log.WithError(derr).Error("Failed to resolve thread depth")
				res.Error = derr.Error()
				return res
			}
			parent = c
			depth = d + 1
		case errors.Is(err, idb.ErrCommentNotFound):
			// Post has no comments yet; comment on the post itself.
		default:
			log.WithError(err).Error("Failed to load newest comment")
			res.Error = err.Error()
			return res
		}
	}

	targetUserID := post.UserID
	if parent != nil {
		targetUserID = parent.UserID
	}
	res.TargetUser = targetUserID

	verdict, err := s.arbiter.Check(ctx, p, targetUserID, depth)
	if err != nil {
		log.WithError(err).Error("Arbiter check failed")
		res.Error = err.Error()
		return res
	}
	if !verdict.Allowed {
		res.Skipped = true
		res.Reason = string(verdict.Reason)
		log.WithField("reason", verdict.Reason).Debug("Interaction rejected by arbiter")
		return res
	}

	history, err := s.communityRepo.ThreadHistory(ctx, post.ID, threadHistorySize)
	if err != nil {
		log.WithError(err).Error("Failed to load thread history")
		res.Error = err.Error()
		return res
	}

	cc := generation.CommentContext{
		PersonaName:     p.DisplayName,
		PersonaUsername: p.Username,
		PersonaCategory: p.Category,
		PostTitle:       post.Title,
		PostPrompt:      post.Prompt,
		PostCategory:    post.Category,
		PostAuthor:      post.AuthorName,
	}
	for _, m := range history {
		cc.ThreadHistory = append(cc.ThreadHistory, generation.ThreadMessage{AuthorName: m.AuthorName, Content: m.Content})
	}
	if parent != nil {
		cc.TargetComment = parent.Content
	}

	generated, err := s.comments.GenerateComment(ctx, cc)
	if err != nil {
		log.WithError(err).Error("Comment generation failed")
		res.Error = err.Error()
		return res
	}
	content := strings.TrimSpace(generated.Content)
	if generated.Confidence < minCommentConfidence || len(content) < minCommentLength {
		log.WithField("confidence", generated.Confidence).Warn("Dropping low-quality generated comment")
		res.Error = "generated comment below quality threshold"
		return res
	}

	c := &community.Comment{
		ID:      uuid.NewString(),
		PostID:  post.ID,
		UserID:  p.UserID,
		Content: content,
	}
	if parent != nil {
		c.ParentID = nullString(parent.ID)
	}
	if err := s.communityRepo.CreateComment(ctx, c); err != nil {
		log.WithError(err).Error("Failed to create comment")
		res.Error = err.Error()
		return res
	}

	details := RecordDetails{TargetPostID: post.ID, Content: content, ThreadDepth: depth}
	if parent != nil {
		details.TargetCommentID = parent.ID
	}
	if err := s.arbiter.Record(ctx, p, targetUserID, interaction.TypeComment, details); err != nil {
		log.WithError(err).Error("Failed to record comment interaction")
	}

	log.Info("Persona commented")
	res.Success = true
	return res
}

func (s *InteractionService) follow(ctx context.Context, log *logrus.Entry, p *persona.Persona, post *community.Post, res InteractionResult) InteractionResult {
	already, err := s.communityRepo.IsFollowing(ctx, p.UserID, post.UserID)
	if err != nil {
		log.WithError(err).Error("Failed to check follow state")
		res.Error = err.Error()
		return res
	}
	if already {
		res.Skipped = true
		res.Reason = "already_following"
		return res
	}

	verdict, err := s.arbiter.Check(ctx, p, post.UserID, 0)
	if err != nil {
		log.WithError(err).Error("Arbiter check failed")
		res.Error = err.Error()
		return res
	}
	if !verdict.Allowed {
		res.Skipped = true
		res.Reason = string(verdict.Reason)
		return res
	}

	if err := s.communityRepo.CreateFollow(ctx, p.UserID, post.UserID); err != nil {
		if errors.Is(err, idb.ErrAlreadyFollowing) {
			res.Skipped = true
			res.Reason = "already_following"
			return res
		}
		log.WithError(err).Error("Failed to create follow")
		res.Error = err.Error()
		return res
	}

	if err := s.arbiter.Record(ctx, p, post.UserID, interaction.TypeFollow, RecordDetails{TargetPostID: post.ID}); err != nil {
		log.WithError(err).Error("Failed to record follow interaction")
	}

	log.WithField("followee", post.UserID).Info("Persona followed author")
	res.Success = true
	return res
}

func (s *InteractionService) like(ctx context.Context, log *logrus.Entry, p *persona.Persona, post *community.Post, res InteractionResult) InteractionResult {
	verdict, err := s.arbiter.Check(ctx, p, post.UserID, 0)
	if err != nil {
		log.WithError(err).Error("Arbiter check failed")
		res.Error = err.Error()
		return res
	}
	if !verdict.Allowed {
		res.Skipped = true
		res.Reason = string(verdict.Reason)
		return res
	}

	if err := s.communityRepo.IncrementLikeCount(ctx, post.ID); err != nil {
		log.WithError(err).Error("Failed to like post")
		res.Error = err.Error()
		return res
	}

	if err := s.arbiter.Record(ctx, p, post.UserID, interaction.TypeLike, RecordDetails{TargetPostID: post.ID}); err != nil {
		log.WithError(err).Error("Failed to record like interaction")
	}

	log.Info("Persona liked post")
	res.Success = true
	return res
}
