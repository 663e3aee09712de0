package character

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/easeaico/companion-chat/internal/access"
	apperrors "github.com/easeaico/companion-chat/internal/errors"
	"github.com/easeaico/companion-chat/internal/models"
	"github.com/easeaico/companion-chat/internal/storage"
	"github.com/easeaico/companion-chat/internal/types"
)

type fakeCompleter struct {
	last  models.CompletionRequest
	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.CompletionResponse{Text: f.reply}, nil
}

func newTestService(t *testing.T) (*Service, *fakeCompleter) {
	t.Helper()
	store, err := storage.OpenSQLite(context.Background(), "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)

	authz := access.NewAuthorizer(store.Characters, store.Conversations, store.Messages)
	completer := &fakeCompleter{reply: "你好呀"}
	service := NewService(store.Characters, authz, completer, Options{MaxPerUser: 3, DefaultTemperature: 0.7, DefaultMaxTokens: 2048})
	return service, completer
}

func mustCreate(t *testing.T, s *Service, userID int64, name string) *types.Character {
	t.Helper()
	c, err := s.Create(context.Background(), userID, types.CharacterCard{Name: name})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return c
}

func TestCreateAppliesDefaults(t *testing.T) {
	s, _ := newTestService(t)
	c := mustCreate(t, s, 1, "小雪")

	if c.ID == 0 || c.Status != types.CharacterActive {
		t.Fatalf("unexpected character: %#v", c)
	}
	if c.Personality != types.PersonalityFriendly || c.Gender != types.GenderFemale {
		t.Fatalf("expected default personality/gender, got %s/%s", c.Personality, c.Gender)
	}
	if c.Temperature != 0.7 || c.MaxTokens != 2048 {
		t.Fatalf("expected default generation settings, got %v/%d", c.Temperature, c.MaxTokens)
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	s, _ := newTestService(t)
	mustCreate(t, s, 1, "小雪")

	_, err := s.Create(context.Background(), 1, types.CharacterCard{Name: "小雪"})
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Type != apperrors.ErrorTypeValidation || appErr.Fields["name"] != "角色名称已存在" {
		t.Fatalf("expected duplicate name validation error, got %v", err)
	}

	// Another user may reuse the name.
	mustCreate(t, s, 2, "小雪")
}

func TestCreateValidatesFields(t *testing.T) {
	s, _ := newTestService(t)
	age := 0
	temperature := 1.5
	maxTokens := 50
	_, err := s.Create(context.Background(), 1, types.CharacterCard{
		Name:        strings.Repeat("名", 51),
		Personality: "GRUMPY",
		Age:         &age,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"name", "personality", "age", "temperature", "max_tokens"} {
		if _, ok := appErr.Fields[field]; !ok {
			t.Fatalf("expected %s to fail, got %#v", field, appErr.Fields)
		}
	}
}

func TestCreateEnforcesQuota(t *testing.T) {
	s, _ := newTestService(t)
	for _, name := range []string{"a", "b", "c"} {
		mustCreate(t, s, 1, name)
	}
	if _, err := s.Create(context.Background(), 1, types.CharacterCard{Name: "d"}); !apperrors.IsValidationError(err) {
		t.Fatalf("expected quota validation error, got %v", err)
	}
}

func TestDeleteFreesNameAndHides(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, s, 1, "小雪")

	if err := s.Delete(ctx, 2, c.ID); !apperrors.IsForbiddenError(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := s.Delete(ctx, 1, c.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := s.Get(ctx, 1, c.ID); !apperrors.IsNotFoundError(err) {
		t.Fatalf("expected deleted character to be not found, got %v", err)
	}
	list, err := s.List(ctx, 1)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %d (%v)", len(list), err)
	}
	mustCreate(t, s, 1, "小雪")
}

func TestUpdatePartial(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, s, 1, "小雪")
	mustCreate(t, s, 1, "小雨")

	description := "温柔"
	updated, err := s.Update(ctx, 1, c.ID, UpdateRequest{Description: &description})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Description != "温柔" || updated.Name != "小雪" {
		t.Fatalf("unexpected update: %#v", updated)
	}

	taken := "小雨"
	if _, err := s.Update(ctx, 1, c.ID, UpdateRequest{Name: &taken}); !apperrors.IsValidationError(err) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
	same := "小雪"
	if _, err := s.Update(ctx, 1, c.ID, UpdateRequest{Name: &same}); err != nil {
		t.Fatalf("expected keeping the same name to pass, got %v", err)
	}
}

func TestClone(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	age := 22
	original, err := s.Create(ctx, 1, types.CharacterCard{Name: "小雪", Age: &age, SystemPrompt: "你是小雪"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clone, err := s.Clone(ctx, 1, original.ID, "小雪二号")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if clone.ID == original.ID || clone.Name != "小雪二号" || clone.SystemPrompt != "你是小雪" || *clone.Age != 22 {
		t.Fatalf("unexpected clone: %#v", clone)
	}
	if clone.UsageCount != 0 || clone.Status != types.CharacterActive {
		t.Fatalf("expected fresh clone, got %#v", clone)
	}
	if _, err := s.Clone(ctx, 1, original.ID, "小雪"); !apperrors.IsValidationError(err) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
	if _, err := s.Clone(ctx, 2, original.ID, "偷来的"); !apperrors.IsForbiddenError(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSetStatus(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, s, 1, "小雪")

	got, err := s.SetStatus(ctx, 1, c.ID, types.CharacterInactive)
	if err != nil || got.Status != types.CharacterInactive {
		t.Fatalf("expected inactive, got %v (%v)", got, err)
	}
	if _, err := s.SetStatus(ctx, 1, c.ID, types.CharacterDeleted); !apperrors.IsValidationError(err) {
		t.Fatalf("expected deleted to be rejected here, got %v", err)
	}
	got, err = s.SetStatus(ctx, 1, c.ID, types.CharacterActive)
	if err != nil || got.Status != types.CharacterActive {
		t.Fatalf("expected active, got %v (%v)", got, err)
	}
}

func TestSearchAndPopular(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, 1, "Alice")
	mustCreate(t, s, 1, "Bob")

	found, err := s.Search(ctx, 1, "ali")
	if err != nil || len(found) != 1 || found[0].Name != "Alice" {
		t.Fatalf("unexpected search result: %#v (%v)", found, err)
	}
	all, err := s.Search(ctx, 1, "  ")
	if err != nil || len(all) != 2 {
		t.Fatalf("expected blank keyword to list all, got %d (%v)", len(all), err)
	}
	popular, err := s.Popular(ctx, 1, 1)
	if err != nil || len(popular) != 1 {
		t.Fatalf("expected one popular character, got %d (%v)", len(popular), err)
	}
}

func TestCharacterTest(t *testing.T) {
	s, completer := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, s, 1, "小雪")

	result, err := s.Test(ctx, 1, c.ID, "你好")
	if err != nil || result.Reply != "你好呀" {
		t.Fatalf("unexpected test result: %#v (%v)", result, err)
	}
	if !strings.HasPrefix(completer.last.SystemPrompt, "你是一个名叫小雪的AI角色。") {
		t.Fatalf("expected derived system prompt, got %q", completer.last.SystemPrompt)
	}
	if _, err := s.Test(ctx, 1, c.ID, strings.Repeat("长", MaxTestMessageLength+1)); !apperrors.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	completer.err = errors.New("upstream 502")
	if _, err := s.Test(ctx, 1, c.ID, "你好"); !apperrors.IsCompletionError(err) {
		t.Fatalf("expected completion error, got %v", err)
	}
}

func TestImportCards(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, 1, "已有")

	deck := types.CardDeck{Characters: []types.CharacterCard{
		{Name: "已有"},
		{Name: "新角色", SystemPrompt: "你是{{char}}，正在和{{user}}聊天。"},
	}}
	created, err := s.ImportCards(ctx, 1, "阿明", deck)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(created) != 1 || created[0].Name != "新角色" {
		t.Fatalf("expected only the new card imported, got %#v", created)
	}
	if created[0].SystemPrompt != "你是新角色，正在和阿明聊天。" {
		t.Fatalf("expected placeholders expanded, got %q", created[0].SystemPrompt)
	}
}
