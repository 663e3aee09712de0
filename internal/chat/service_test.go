package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "github.com/easeaico/companion-chat/internal/errors"
	"github.com/easeaico/companion-chat/internal/models"
	"github.com/easeaico/companion-chat/internal/types"
)

type fakeAuthz struct {
	conversations map[int64]*types.Conversation
}

func (f *fakeAuthz) Conversation(ctx context.Context, userID, id int64) (*types.Conversation, error) {
	c, ok := f.conversations[id]
	if !ok || c.IsDeleted() {
		return nil, apperrors.NewNotFoundError("对话不存在", nil)
	}
	if c.UserID != userID {
		return nil, apperrors.NewForbiddenError("无权访问该对话", nil)
	}
	return c, nil
}

type fakeCharacters struct {
	mu         sync.Mutex
	characters map[int64]*types.Character
}

func (f *fakeCharacters) GetByID(ctx context.Context, id int64) (*types.Character, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.characters[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("角色不存在", nil)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCharacters) IncrementUsage(ctx context.Context, id int64, n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.characters[id].UsageCount += n
	return nil
}

type fakeMessages struct {
	mu       sync.Mutex
	messages []types.Message
	failOn   types.SenderType
}

func (f *fakeMessages) Create(ctx context.Context, m *types.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && m.SenderType == f.failOn {
		return errors.New("disk full")
	}
	m.ID = int64(len(f.messages) + 1)
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeMessages) ListRecentTurns(ctx context.Context, conversationID int64, limit int) ([]types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []types.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.SenderType != types.SenderSystem {
			matched = append(matched, m)
		}
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

type fakeConversations struct {
	mu     sync.Mutex
	deltas map[int64][]types.MessageDelta
}

func (f *fakeConversations) ApplyMessageDelta(ctx context.Context, id int64, delta types.MessageDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deltas == nil {
		f.deltas = make(map[int64][]types.MessageDelta)
	}
	f.deltas[id] = append(f.deltas[id], delta)
	return nil
}

func (f *fakeConversations) messageCount(id int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, d := range f.deltas[id] {
		total += d.Messages
	}
	return total
}

type fakeCompleter struct {
	mu       sync.Mutex
	requests []models.CompletionRequest
	reply    func(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.reply(ctx, req)
}

type fixture struct {
	service       *Service
	characters    *fakeCharacters
	messages      *fakeMessages
	conversations *fakeConversations
	completer     *fakeCompleter
	conversation  *types.Conversation
}

func newFixture(t *testing.T, reply string) *fixture {
	t.Helper()
	age := 20
	character := &types.Character{
		ID:          1,
		UserID:      7,
		Name:        "小雪",
		Personality: types.PersonalityFriendly,
		Gender:      types.GenderFemale,
		Age:         &age,
		Temperature: 0.6,
		MaxTokens:   1024,
		Status:      types.CharacterActive,
	}
	conversation := &types.Conversation{
		ID:          100,
		UserID:      7,
		CharacterID: 1,
		Title:       "与小雪的对话",
		Status:      types.ConversationActive,
		Settings:    types.DefaultConversationSettings(),
	}
	f := &fixture{
		characters:    &fakeCharacters{characters: map[int64]*types.Character{1: character}},
		messages:      &fakeMessages{},
		conversations: &fakeConversations{},
		completer: &fakeCompleter{reply: func(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
			return &models.CompletionResponse{Text: reply, TokensUsed: 42}, nil
		}},
		conversation: conversation,
	}
	authz := &fakeAuthz{conversations: map[int64]*types.Conversation{100: conversation}}
	f.service = NewService(authz, f.characters, f.messages, f.conversations, f.completer, Options{
		ContextLimit:      20,
		CompletionTimeout: time.Second,
	})
	return f
}

func TestSendMessagePersistsPair(t *testing.T) {
	f := newFixture(t, "That's wonderful!")

	pair, err := f.service.SendMessage(context.Background(), 7, 100, "I am so happy today!!!")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(pair) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(pair))
	}
	if pair[0].SenderType != types.SenderUser || pair[0].Content != "I am so happy today!!!" {
		t.Fatalf("unexpected user message: %#v", pair[0])
	}
	if pair[1].SenderType != types.SenderAI || pair[1].Content != "That's wonderful!" {
		t.Fatalf("unexpected ai message: %#v", pair[1])
	}
	if pair[1].ProcessingTimeMs == nil || pair[1].TokenCount == nil || *pair[1].TokenCount != 42 {
		t.Fatalf("expected processing time and token count on reply")
	}
	if pair[0].ID >= pair[1].ID {
		t.Fatalf("expected user message before reply")
	}
	if got := f.conversations.messageCount(100); got != 2 {
		t.Fatalf("expected message count 2, got %d", got)
	}
	delta := f.conversations.deltas[100][0]
	if !delta.LastMessageAt.Equal(pair[1].CreatedAt) || delta.Tokens != 42 || delta.ResponseTimeMs == nil {
		t.Fatalf("unexpected delta: %#v", delta)
	}
	if f.characters.characters[1].UsageCount != 1 {
		t.Fatalf("expected usage count 1, got %d", f.characters.characters[1].UsageCount)
	}

	req := f.completer.requests[0]
	if len(req.Turns) != 1 || req.Turns[0].Role != types.RoleUser {
		t.Fatalf("expected the new user message as the final turn, got %#v", req.Turns)
	}
	if req.Temperature != 0.6 || req.MaxTokens != 1024 {
		t.Fatalf("expected character generation settings, got %v/%d", req.Temperature, req.MaxTokens)
	}
	if req.SystemPrompt == "" {
		t.Fatalf("expected system prompt")
	}
}

func TestSendMessageConversationOverrides(t *testing.T) {
	f := newFixture(t, "ok")
	temperature := 0.2
	maxTokens := 300
	f.conversation.Settings.Temperature = &temperature
	f.conversation.Settings.MaxTokens = &maxTokens
	f.conversation.Settings.Model = "glm-4-plus"

	if _, err := f.service.SendMessage(context.Background(), 7, 100, "hi"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	req := f.completer.requests[0]
	if req.Temperature != 0.2 || req.MaxTokens != 300 || req.Model != "glm-4-plus" {
		t.Fatalf("expected conversation overrides, got %#v", req)
	}
}

func TestSendMessageCompletionTimeout(t *testing.T) {
	f := newFixture(t, "")
	f.completer.reply = func(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.service.timeout = 20 * time.Millisecond

	_, err := f.service.SendMessage(context.Background(), 7, 100, "are you there?")
	if !apperrors.IsCompletionError(err) {
		t.Fatalf("expected completion failure, got %v", err)
	}
	if len(f.messages.messages) != 1 || f.messages.messages[0].SenderType != types.SenderUser {
		t.Fatalf("expected only the user message to persist, got %#v", f.messages.messages)
	}
	if got := f.conversations.messageCount(100); got != 0 {
		t.Fatalf("expected counters untouched, got %d", got)
	}
	if f.characters.characters[1].UsageCount != 0 {
		t.Fatalf("expected usage untouched")
	}
}

func TestSendMessageEmptyReplyIsCompletionFailure(t *testing.T) {
	f := newFixture(t, "   ")
	_, err := f.service.SendMessage(context.Background(), 7, 100, "hi")
	if !apperrors.IsCompletionError(err) {
		t.Fatalf("expected completion failure, got %v", err)
	}
}

func TestSendMessageRejectsInactiveConversation(t *testing.T) {
	for _, status := range []types.ConversationStatus{types.ConversationPaused, types.ConversationArchived, types.ConversationCompleted} {
		f := newFixture(t, "ok")
		f.conversation.Status = status
		_, err := f.service.SendMessage(context.Background(), 7, 100, "hello")
		if !apperrors.IsInvalidStateError(err) {
			t.Fatalf("%s: expected invalid state, got %v", status, err)
		}
		if len(f.messages.messages) != 0 {
			t.Fatalf("%s: expected no persisted messages", status)
		}
	}
}

func TestSendMessageRejectsInactiveCharacter(t *testing.T) {
	f := newFixture(t, "ok")
	f.characters.characters[1].Status = types.CharacterInactive
	_, err := f.service.SendMessage(context.Background(), 7, 100, "hello")
	if !apperrors.IsInvalidStateError(err) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if len(f.messages.messages) != 0 {
		t.Fatalf("expected no persisted messages")
	}
}

func TestSendMessageOwnership(t *testing.T) {
	f := newFixture(t, "ok")
	if _, err := f.service.SendMessage(context.Background(), 8, 100, "hello"); !apperrors.IsForbiddenError(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.service.SendMessage(context.Background(), 7, 999, "hello"); !apperrors.IsNotFoundError(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t, "ok")
	if _, err := f.service.SendMessage(context.Background(), 7, 100, "   "); !apperrors.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	long := make([]rune, MaxMessageLength+1)
	for i := range long {
		long[i] = '字'
	}
	if _, err := f.service.SendMessage(context.Background(), 7, 100, string(long)); !apperrors.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.messages.messages) != 0 {
		t.Fatalf("expected no persisted messages")
	}
}

func TestSendMessageReplyPersistFailure(t *testing.T) {
	f := newFixture(t, "ok")
	f.messages.failOn = types.SenderAI

	_, err := f.service.SendMessage(context.Background(), 7, 100, "hello")
	if apperrors.TypeOf(err) != apperrors.ErrorTypeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if got := f.conversations.messageCount(100); got != 1 {
		t.Fatalf("expected the user message to be counted, got %d", got)
	}
}

func TestSendMessageWindowRespectsContextLength(t *testing.T) {
	f := newFixture(t, "ok")
	f.conversation.Settings.ContextLength = 4

	for i := 0; i < 5; i++ {
		if _, err := f.service.SendMessage(context.Background(), 7, 100, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}
	for i, req := range f.completer.requests {
		if len(req.Turns) > 4 {
			t.Fatalf("request %d: window of %d turns exceeds context length", i, len(req.Turns))
		}
		last := req.Turns[len(req.Turns)-1]
		if last.Role != types.RoleUser || last.Text != fmt.Sprintf("message %d", i) {
			t.Fatalf("request %d: expected the new message last, got %#v", i, last)
		}
	}
	if got := f.conversations.messageCount(100); got != 10 {
		t.Fatalf("expected 10 messages counted, got %d", got)
	}
}

func TestSendMessageConcurrentTurns(t *testing.T) {
	f := newFixture(t, "ok")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.service.SendMessage(context.Background(), 7, 100, fmt.Sprintf("m%d", i)); err != nil {
				t.Errorf("turn %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if got := f.conversations.messageCount(100); got != 16 {
		t.Fatalf("expected 16 messages counted, got %d", got)
	}
	if f.characters.characters[1].UsageCount != 8 {
		t.Fatalf("expected usage 8, got %d", f.characters.characters[1].UsageCount)
	}
	if f.service.turns.size() != 0 {
		t.Fatalf("expected turn locks released")
	}
}

func lockRefs(k *keyedMutex, key int64) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if m, ok := k.locks[key]; ok {
		return m.refs
	}
	return 0
}

func TestSendMessageQueuedTurnSeesArchive(t *testing.T) {
	f := newFixture(t, "ok")
	started := make(chan struct{})
	release := make(chan struct{})
	f.completer.reply = func(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
		close(started)
		<-release
		f.conversation.Status = types.ConversationArchived
		return &models.CompletionResponse{Text: "bye", TokensUsed: 1}, nil
	}

	first := make(chan error, 1)
	go func() {
		_, err := f.service.SendMessage(context.Background(), 7, 100, "first")
		first <- err
	}()
	<-started

	second := make(chan error, 1)
	go func() {
		_, err := f.service.SendMessage(context.Background(), 7, 100, "second")
		second <- err
	}()
	deadline := time.Now().Add(time.Second)
	for lockRefs(f.service.turns, 100) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected the second turn to wait on the conversation lock")
		}
		time.Sleep(time.Millisecond)
	}
	close(release)

	if err := <-first; err != nil {
		t.Fatalf("expected first turn to succeed, got %v", err)
	}
	if err := <-second; !apperrors.IsInvalidStateError(err) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if len(f.messages.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(f.messages.messages))
	}
	if got := f.conversations.messageCount(100); got != 2 {
		t.Fatalf("expected message count 2, got %d", got)
	}
}
