package app

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"virtual_persona_bot/internal/domain/community"
	"virtual_persona_bot/internal/domain/generation"
	"virtual_persona_bot/internal/domain/interaction"
	"virtual_persona_bot/internal/domain/persona"
	"virtual_persona_bot/internal/domain/queue"
	idb "virtual_persona_bot/internal/infra/database"
)

// In-memory fakes mirroring the repository contracts, including the sentinel
// errors and the atomic guards the Postgres implementations provide.

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l.WithField("service", "test")
}

type fakePersonaRepo struct {
	personas map[string]*persona.Persona
	virtual  map[string]bool // userID -> is persona

	allocateErr error
	consumeErr  error
}

func newFakePersonaRepo(ps ...*persona.Persona) *fakePersonaRepo {
	r := &fakePersonaRepo{
		personas: make(map[string]*persona.Persona),
		virtual:  make(map[string]bool),
	}
	for _, p := range ps {
		r.personas[p.ID] = p
		r.virtual[p.UserID] = true
	}
	return r
}

func (r *fakePersonaRepo) GetByID(_ context.Context, id string) (*persona.Persona, error) {
	p, ok := r.personas[id]
	if !ok {
		return nil, idb.ErrPersonaNotFound
	}
	return p, nil
}

func (r *fakePersonaRepo) sorted() []*persona.Persona {
	out := make([]*persona.Persona, 0, len(r.personas))
	for _, p := range r.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakePersonaRepo) ListActive(_ context.Context) ([]*persona.Persona, error) {
	var out []*persona.Persona
	for _, p := range r.sorted() {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePersonaRepo) ListActiveWithTokens(_ context.Context) ([]*persona.Persona, error) {
	var out []*persona.Persona
	for _, p := range r.sorted() {
		if p.IsActive && p.TokensRemaining > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePersonaRepo) AllocateTokens(_ context.Context, id string, tokens int, day time.Time) (bool, error) {
	if r.allocateErr != nil {
		return false, r.allocateErr
	}
	p, ok := r.personas[id]
	if !ok || !p.IsActive {
		return false, nil
	}
	if p.LastAllocatedOn.Valid && !p.LastAllocatedOn.Time.Before(day) {
		return false, nil
	}
	p.TokensRemaining = tokens
	p.LastAllocatedOn.Time = day
	p.LastAllocatedOn.Valid = true
	return true, nil
}

func (r *fakePersonaRepo) ConsumeToken(_ context.Context, id string) error {
	if r.consumeErr != nil {
		return r.consumeErr
	}
	p, ok := r.personas[id]
	if !ok || p.TokensRemaining <= 0 {
		return idb.ErrInsufficientTokens
	}
	p.TokensRemaining--
	p.TotalPostsMade++
	return nil
}

func (r *fakePersonaRepo) IncrementInteractionCounters(_ context.Context, id string, interactionType string, _ time.Time) error {
	p, ok := r.personas[id]
	if !ok {
		return idb.ErrPersonaNotFound
	}
	switch interactionType {
	case "comment":
		p.TotalComments++
	case "follow":
		p.TotalFollows++
	}
	return nil
}

func (r *fakePersonaRepo) IsVirtualUser(_ context.Context, userID string) (bool, error) {
	return r.virtual[userID], nil
}

func (r *fakePersonaRepo) TokenStats(_ context.Context) (*persona.TokenStats, error) {
	stats := &persona.TokenStats{ByLevel: make(map[persona.ActivityLevel]persona.TierTokenStats)}
	for _, p := range r.personas {
		if !p.IsActive {
			continue
		}
		stats.TotalActive++
		stats.TotalTokens += p.TokensRemaining
		tier := stats.ByLevel[p.ActivityLevel]
		tier.Count++
		tier.Tokens += p.TokensRemaining
		stats.ByLevel[p.ActivityLevel] = tier
	}
	return stats, nil
}

type fakeQueueRepo struct {
	items map[string]*queue.Item

	claimErr error
	statsErr error
}

func newFakeQueueRepo(items ...*queue.Item) *fakeQueueRepo {
	r := &fakeQueueRepo{items: make(map[string]*queue.Item)}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

func (r *fakeQueueRepo) Create(_ context.Context, item *queue.Item) error {
	r.items[item.ID] = item
	return nil
}

func (r *fakeQueueRepo) GetByID(_ context.Context, id string) (*queue.Item, error) {
	it, ok := r.items[id]
	if !ok {
		return nil, idb.ErrItemNotFound
	}
	return it, nil
}

func (r *fakeQueueRepo) ClaimMatchingForCategory(_ context.Context, category, personaID string) (*queue.Item, error) {
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	var best *queue.Item
	rank := func(it *queue.Item) int {
		switch {
		case it.Category.Valid && it.Category.String == category:
			return 0
		case !it.Category.Valid:
			return 1
		default:
			return 2
		}
	}
	for _, id := range sortedItemIDs(r.items) {
		it := r.items[id]
		if it.Status != queue.StatusPending || it.AssignedPersonaID.Valid {
			continue
		}
		if best == nil || rank(it) < rank(best) ||
			(rank(it) == rank(best) && it.Priority > best.Priority) ||
			(rank(it) == rank(best) && it.Priority == best.Priority && it.CreatedAt.Before(best.CreatedAt)) {
			best = it
		}
	}
	if best == nil {
		return nil, idb.ErrItemNotFound
	}
	best.Status = queue.StatusAssigned
	best.AssignedPersonaID.String = personaID
	best.AssignedPersonaID.Valid = true
	return best, nil
}

func sortedItemIDs(items map[string]*queue.Item) []string {
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *fakeQueueRepo) MarkProcessing(_ context.Context, id string) error {
	it, ok := r.items[id]
	if !ok || it.Status != queue.StatusAssigned {
		return idb.ErrItemNotFound
	}
	it.Status = queue.StatusProcessing
	return nil
}

func (r *fakeQueueRepo) MarkCompleted(_ context.Context, id, postID string) error {
	it, ok := r.items[id]
	if !ok {
		return idb.ErrItemNotFound
	}
	it.Status = queue.StatusCompleted
	it.PostID.String = postID
	it.PostID.Valid = true
	return nil
}

func (r *fakeQueueRepo) MarkFailed(_ context.Context, id, errorMessage string) error {
	it, ok := r.items[id]
	if !ok {
		return idb.ErrItemNotFound
	}
	it.Status = queue.StatusFailed
	it.ErrorMessage.String = errorMessage
	it.ErrorMessage.Valid = true
	return nil
}

func (r *fakeQueueRepo) Stats(_ context.Context) (*queue.Stats, error) {
	if r.statsErr != nil {
		return nil, r.statsErr
	}
	stats := &queue.Stats{}
	for _, it := range r.items {
		switch it.Status {
		case queue.StatusPending:
			stats.Pending++
		case queue.StatusAssigned:
			stats.Assigned++
		case queue.StatusProcessing:
			stats.Processing++
		case queue.StatusCompleted:
			stats.Completed++
		case queue.StatusFailed:
			stats.Failed++
		}
		stats.Total++
	}
	return stats, nil
}

func (r *fakeQueueRepo) DeleteFailedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, it := range r.items {
		if it.Status == queue.StatusFailed && it.CreatedAt.Before(cutoff) {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

type fakeScheduleRepo struct {
	records map[string]*queue.ScheduleRecord

	createErr error
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{records: make(map[string]*queue.ScheduleRecord)}
}

func (r *fakeScheduleRepo) Create(_ context.Context, rec *queue.ScheduleRecord) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *fakeScheduleRepo) MarkCompleted(_ context.Context, id, postID, imageURL string) error {
	rec, ok := r.records[id]
	if !ok {
		return idb.ErrScheduleNotFound
	}
	rec.Status = queue.ScheduleCompleted
	rec.PostID.String = postID
	rec.PostID.Valid = true
	rec.GeneratedImageURL.String = imageURL
	rec.GeneratedImageURL.Valid = true
	return nil
}

func (r *fakeScheduleRepo) MarkFailed(_ context.Context, id, errorMessage string) error {
	rec, ok := r.records[id]
	if !ok {
		return idb.ErrScheduleNotFound
	}
	rec.Status = queue.ScheduleFailed
	rec.LastError.String = errorMessage
	rec.LastError.Valid = true
	return nil
}

type fakeCommunityRepo struct {
	posts    []*community.Post
	comments []*community.Comment
	follows  map[string]bool // follower|followee
	likes    map[string]int

	createCommentErr error
	likeErr          error
}

func newFakeCommunityRepo(posts ...*community.Post) *fakeCommunityRepo {
	return &fakeCommunityRepo{
		posts:   posts,
		follows: make(map[string]bool),
		likes:   make(map[string]int),
	}
}

func (r *fakeCommunityRepo) CreatePost(_ context.Context, post *community.Post) error {
	r.posts = append([]*community.Post{post}, r.posts...)
	return nil
}

func (r *fakeCommunityRepo) ListRecentPublished(_ context.Context, limit int, excludeUserID string) ([]*community.Post, error) {
	var out []*community.Post
	for _, p := range r.posts {
		if p.UserID == excludeUserID || p.Status != "published" {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeCommunityRepo) CreateComment(_ context.Context, c *community.Comment) error {
	if r.createCommentErr != nil {
		return r.createCommentErr
	}
	r.comments = append(r.comments, c)
	return nil
}

func (r *fakeCommunityRepo) NewestComment(_ context.Context, postID string) (*community.Comment, error) {
	for i := len(r.comments) - 1; i >= 0; i-- {
		if r.comments[i].PostID == postID {
			return r.comments[i], nil
		}
	}
	return nil, idb.ErrCommentNotFound
}

func (r *fakeCommunityRepo) ThreadDepth(_ context.Context, commentID string) (int, error) {
	for _, c := range r.comments {
		if c.ID != commentID {
			continue
		}
		if !c.ParentID.Valid {
			return 0, nil
		}
		parent, err := r.ThreadDepth(context.Background(), c.ParentID.String)
		if err != nil {
			return 0, err
		}
		return parent + 1, nil
	}
	return 0, idb.ErrCommentNotFound
}

func (r *fakeCommunityRepo) ThreadHistory(_ context.Context, postID string, limit int) ([]community.ThreadMessage, error) {
	var out []community.ThreadMessage
	for _, c := range r.comments {
		if c.PostID == postID {
			out = append(out, community.ThreadMessage{AuthorName: c.AuthorName, Content: c.Content})
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeCommunityRepo) IsFollowing(_ context.Context, followerUserID, followeeUserID string) (bool, error) {
	return r.follows[followerUserID+"|"+followeeUserID], nil
}

func (r *fakeCommunityRepo) CreateFollow(_ context.Context, followerUserID, followeeUserID string) error {
	key := followerUserID + "|" + followeeUserID
	if r.follows[key] {
		return idb.ErrAlreadyFollowing
	}
	r.follows[key] = true
	return nil
}

func (r *fakeCommunityRepo) IncrementLikeCount(_ context.Context, postID string) error {
	if r.likeErr != nil {
		return r.likeErr
	}
	r.likes[postID]++
	return nil
}

type fakeInteractionRepo struct {
	entries        []*interaction.LogEntry
	cooldowns      map[string]time.Time // personaID|targetUserID
	virtualTargets map[string]bool      // userID -> counts toward the v2v cap

	appendErr error
}

func newFakeInteractionRepo() *fakeInteractionRepo {
	return &fakeInteractionRepo{
		cooldowns:      make(map[string]time.Time),
		virtualTargets: make(map[string]bool),
	}
}

func (r *fakeInteractionRepo) Append(_ context.Context, entry *interaction.LogEntry) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeInteractionRepo) CountForPersonaSince(_ context.Context, personaID string, since time.Time) (int, error) {
	n := 0
	for _, e := range r.entries {
		if e.PersonaID == personaID && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeInteractionRepo) CountVirtualTargetsSince(_ context.Context, personaID string, since time.Time) (int, error) {
	n := 0
	for _, e := range r.entries {
		if e.PersonaID == personaID && !e.CreatedAt.Before(since) && e.TargetUserID.Valid && r.virtualTargets[e.TargetUserID.String] {
			n++
		}
	}
	return n, nil
}

func (r *fakeInteractionRepo) LastInteractionAt(_ context.Context, personaID, targetUserID string) (time.Time, bool, error) {
	at, ok := r.cooldowns[personaID+"|"+targetUserID]
	return at, ok, nil
}

func (r *fakeInteractionRepo) TouchCooldown(_ context.Context, personaID, targetUserID string, at time.Time) error {
	r.cooldowns[personaID+"|"+targetUserID] = at
	return nil
}

func (r *fakeInteractionRepo) DeleteCooldownsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for k, at := range r.cooldowns {
		if at.Before(cutoff) {
			delete(r.cooldowns, k)
			n++
		}
	}
	return n, nil
}

type fakeImageGenerator struct {
	url string
	err error
}

func (g *fakeImageGenerator) GenerateImage(_ context.Context, _ generation.ImageRequest) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.url, nil
}

type fakeCommentGenerator struct {
	result generation.CommentResult
	err    error
	lastCC generation.CommentContext
}

func (g *fakeCommentGenerator) GenerateComment(_ context.Context, cc generation.CommentContext) (generation.CommentResult, error) {
	g.lastCC = cc
	if g.err != nil {
		return generation.CommentResult{}, g.err
	}
	return g.result, nil
}

var errBoom = errors.New("boom")
