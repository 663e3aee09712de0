package emotion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/easeaico/companion-chat/internal/errors"
	"github.com/easeaico/companion-chat/internal/types"
)

type fakeAuthz struct {
	messages      map[int64]*types.Message
	conversations map[int64]*types.Conversation
}

func (f *fakeAuthz) Conversation(ctx context.Context, userID, id int64) (*types.Conversation, error) {
	c, ok := f.conversations[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("对话不存在", nil)
	}
	if c.UserID != userID {
		return nil, apperrors.NewForbiddenError("无权访问该对话", nil)
	}
	return c, nil
}

func (f *fakeAuthz) Message(ctx context.Context, userID, id int64) (*types.Message, *types.Conversation, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, nil, apperrors.NewNotFoundError("消息不存在", nil)
	}
	c, err := f.Conversation(ctx, userID, m.ConversationID)
	if err != nil {
		return nil, nil, err
	}
	copied := *m
	return &copied, c, nil
}

type fakeAnalysisRepo struct {
	mu      sync.Mutex
	stored  map[int64]types.EmotionAnalysis
	inserts int
	nextID  int64
}

func newFakeAnalysisRepo() *fakeAnalysisRepo {
	return &fakeAnalysisRepo{stored: make(map[int64]types.EmotionAnalysis)}
}

func (r *fakeAnalysisRepo) GetByMessageID(ctx context.Context, messageID int64) (*types.EmotionAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.stored[messageID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *fakeAnalysisRepo) CreateIfAbsent(ctx context.Context, analysis *types.EmotionAnalysis) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stored[analysis.MessageID]; ok {
		return false, nil
	}
	r.nextID++
	r.inserts++
	analysis.ID = r.nextID
	r.stored[analysis.MessageID] = *analysis
	return true, nil
}

func (r *fakeAnalysisRepo) ListByOwner(ctx context.Context, userID int64, since time.Time) ([]types.EmotionAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.EmotionAnalysis
	for _, a := range r.stored {
		if since.IsZero() || !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAnalysisRepo) ListByConversation(ctx context.Context, conversationID int64) ([]types.EmotionAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.EmotionAnalysis
	for _, a := range r.stored {
		if a.ConversationID == conversationID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeScorer struct {
	mu     sync.Mutex
	scores map[int64]float64
	err    error
}

func (f *fakeScorer) SetEmotionScore(ctx context.Context, id int64, score float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.scores[id]; ok {
		return false, nil
	}
	f.scores[id] = score
	return true, nil
}

func newTestService() (*Service, *fakeAnalysisRepo, *fakeScorer) {
	authz := &fakeAuthz{
		conversations: map[int64]*types.Conversation{
			10: {ID: 10, UserID: 1, Status: types.ConversationActive},
			20: {ID: 20, UserID: 2, Status: types.ConversationActive},
		},
		messages: map[int64]*types.Message{
			100: {ID: 100, ConversationID: 10, Content: "I am so happy today!!!", SenderType: types.SenderUser},
			101: {ID: 101, ConversationID: 10, Content: "我有点担心明天的考试", SenderType: types.SenderUser},
			200: {ID: 200, ConversationID: 20, Content: "hello", SenderType: types.SenderUser},
		},
	}
	repo := newFakeAnalysisRepo()
	scorer := &fakeScorer{scores: make(map[int64]float64)}
	return NewService(authz, repo, scorer, Options{TrendDays: 7, Location: time.UTC}), repo, scorer
}

func TestServiceAnalyzeIsIdempotent(t *testing.T) {
	service, repo, scorer := newTestService()
	ctx := context.Background()

	first, err := service.Analyze(ctx, 1, 100)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first.EmotionType != types.EmotionJoy || first.MessageID != 100 || first.ConversationID != 10 {
		t.Fatalf("unexpected analysis: %#v", first)
	}
	if scorer.scores[100] != 0.8 {
		t.Fatalf("expected valence propagated to message, got %v", scorer.scores[100])
	}

	second, err := service.Analyze(ctx, 1, 100)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if second.ID != first.ID || !second.CreatedAt.Equal(first.CreatedAt) || second.Keywords != first.Keywords {
		t.Fatalf("expected cached analysis, got %#v vs %#v", second, first)
	}
	if repo.inserts != 1 {
		t.Fatalf("expected a single insert, got %d", repo.inserts)
	}
}

func TestServiceAnalyzeConcurrentConverges(t *testing.T) {
	service, repo, _ := newTestService()
	ctx := context.Background()

	results := make([]*types.EmotionAnalysis, 10)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := service.Analyze(ctx, 1, 101)
			if err != nil {
				t.Errorf("analyze %d: %v", i, err)
				return
			}
			results[i] = a
		}(i)
	}
	wg.Wait()

	if repo.inserts != 1 {
		t.Fatalf("expected one stored analysis, got %d", repo.inserts)
	}
	for i, a := range results {
		if a == nil || a.ID != results[0].ID || a.EmotionType != types.EmotionFear {
			t.Fatalf("result %d diverged: %#v", i, a)
		}
	}
}

func TestServiceAnalyzeOwnership(t *testing.T) {
	service, repo, _ := newTestService()
	if _, err := service.Analyze(context.Background(), 1, 200); !apperrors.IsForbiddenError(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := service.Analyze(context.Background(), 1, 999); !apperrors.IsNotFoundError(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if repo.inserts != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestServiceAnalyzeScoreFailureStillReturns(t *testing.T) {
	service, _, scorer := newTestService()
	scorer.err = errors.New("db down")

	analysis, err := service.Analyze(context.Background(), 1, 100)
	if err != nil || analysis == nil {
		t.Fatalf("expected analysis despite score failure, got %v", err)
	}
	if len(scorer.scores) != 0 {
		t.Fatalf("expected message left unscored")
	}

	scorer.err = nil
	if _, err := service.Analyze(context.Background(), 1, 100); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if scorer.scores[100] != 0.8 {
		t.Fatalf("expected the retry to propagate the score")
	}
}

func TestServiceMessageEmotion(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()

	if _, err := service.MessageEmotion(ctx, 1, 100); !apperrors.IsNotFoundError(err) {
		t.Fatalf("expected not found before analysis, got %v", err)
	}
	if _, err := service.Analyze(ctx, 1, 100); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a, err := service.MessageEmotion(ctx, 1, 100); err != nil || a.MessageID != 100 {
		t.Fatalf("expected stored analysis, got %v", err)
	}
}

func TestServiceStatsAndTrend(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()
	fixed := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return fixed }

	for _, id := range []int64{100, 101} {
		if _, err := service.Analyze(ctx, 1, id); err != nil {
			t.Fatalf("analyze %d: %v", id, err)
		}
	}

	stats, err := service.Stats(ctx, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if stats.TotalAnalyses != 2 || stats.PositiveRatio != 0.5 || stats.NegativeRatio != 0.5 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	points, err := service.Trend(ctx, 1, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(points) != 1 || points[0].Date != "2026-05-10" || points[0].Count != 2 {
		t.Fatalf("unexpected trend: %#v", points)
	}

	service.now = func() time.Time { return fixed.AddDate(0, 0, 30) }
	points, err = service.Trend(ctx, 1, 7)
	if err != nil || len(points) != 0 {
		t.Fatalf("expected empty trend outside the window, got %#v (%v)", points, err)
	}
	if _, err := service.Trend(ctx, 1, 400); !apperrors.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceConversationEmotions(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()
	if _, err := service.Analyze(ctx, 1, 100); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	analyses, err := service.ConversationEmotions(ctx, 1, 10)
	if err != nil || len(analyses) != 1 {
		t.Fatalf("expected one analysis, got %d (%v)", len(analyses), err)
	}
	if _, err := service.ConversationEmotions(ctx, 1, 20); !apperrors.IsForbiddenError(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
