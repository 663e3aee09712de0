// Package emotion scores messages with a keyword rule table and rolls the
// scores up into per-user statistics.
package emotion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/easeaico/companion-chat/internal/errors"
	"github.com/easeaico/companion-chat/internal/types"
)

// Authorizer resolves records through the caller's ownership chain.
type Authorizer interface {
	Message(ctx context.Context, userID, messageID int64) (*types.Message, *types.Conversation, error)
	Conversation(ctx context.Context, userID, conversationID int64) (*types.Conversation, error)
}

// AnalysisRepo stores at most one analysis per message.
type AnalysisRepo interface {
	GetByMessageID(ctx context.Context, messageID int64) (*types.EmotionAnalysis, error)
	CreateIfAbsent(ctx context.Context, analysis *types.EmotionAnalysis) (bool, error)
	ListByOwner(ctx context.Context, userID int64, since time.Time) ([]types.EmotionAnalysis, error)
	ListByConversation(ctx context.Context, conversationID int64) ([]types.EmotionAnalysis, error)
}

// MessageScorer records the emotion score of a message once.
type MessageScorer interface {
	SetEmotionScore(ctx context.Context, id int64, score float64) (bool, error)
}

// Options tunes aggregation.
type Options struct {
	TrendDays int
	Location  *time.Location
}

// Service analyzes messages and aggregates the results.
type Service struct {
	authz     Authorizer
	analyses  AnalysisRepo
	messages  MessageScorer
	analyzer  *Analyzer
	trendDays int
	location  *time.Location
	now       func() time.Time
}

// NewService returns a new emotion service.
func NewService(authz Authorizer, analyses AnalysisRepo, messages MessageScorer, opts Options) *Service {
	if opts.TrendDays <= 0 {
		opts.TrendDays = 30
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		authz:     authz,
		analyses:  analyses,
		messages:  messages,
		analyzer:  NewAnalyzer(),
		trendDays: opts.TrendDays,
		location:  opts.Location,
		now:       time.Now,
	}
}

// Analyze returns the message's analysis, computing and storing it on first
// use. Repeated and concurrent calls converge on one stored record.
func (s *Service) Analyze(ctx context.Context, userID, messageID int64) (*types.EmotionAnalysis, error) {
	message, _, err := s.authz.Message(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}

	existing, err := s.analyses.GetByMessageID(ctx, message.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("查询情感分析失败", err)
	}
	if existing != nil {
		if message.EmotionScore == nil {
			s.propagateScore(ctx, message.ID, existing)
		}
		return existing, nil
	}

	analysis := s.analyzer.Analyze(message.Content)
	analysis.MessageID = message.ID
	analysis.ConversationID = message.ConversationID
	analysis.CreatedAt = s.now()

	created, err := s.analyses.CreateIfAbsent(ctx, &analysis)
	if err != nil {
		return nil, apperrors.NewInternalError("保存情感分析失败", err)
	}

	// Read back so every caller sees the stored record, including the race loser.
	stored, err := s.analyses.GetByMessageID(ctx, message.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("查询情感分析失败", err)
	}
	if stored == nil {
		return nil, apperrors.NewInternalError("查询情感分析失败", fmt.Errorf("analysis of message %d vanished", message.ID))
	}
	if created {
		s.propagateScore(ctx, message.ID, stored)
		slog.Debug("message analyzed", "message_id", message.ID, "emotion", stored.EmotionType, "confidence", stored.Confidence)
	}
	return stored, nil
}

// MessageEmotion returns the stored analysis of a message without computing one.
func (s *Service) MessageEmotion(ctx context.Context, userID, messageID int64) (*types.EmotionAnalysis, error) {
	if _, _, err := s.authz.Message(ctx, userID, messageID); err != nil {
		return nil, err
	}
	analysis, err := s.analyses.GetByMessageID(ctx, messageID)
	if err != nil {
		return nil, apperrors.NewInternalError("查询情感分析失败", err)
	}
	if analysis == nil {
		return nil, apperrors.NewNotFoundError("该消息尚未进行情感分析", nil)
	}
	return analysis, nil
}

// ConversationEmotions lists a conversation's analyses, oldest first.
func (s *Service) ConversationEmotions(ctx context.Context, userID, conversationID int64) ([]types.EmotionAnalysis, error) {
	if _, err := s.authz.Conversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	analyses, err := s.analyses.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, apperrors.NewInternalError("查询对话情感失败", err)
	}
	return analyses, nil
}

// Stats summarizes every analysis of the user's conversations.
func (s *Service) Stats(ctx context.Context, userID int64) (*Stats, error) {
	analyses, err := s.analyses.ListByOwner(ctx, userID, time.Time{})
	if err != nil {
		return nil, apperrors.NewInternalError("查询情感统计失败", err)
	}
	stats := Summarize(analyses)
	return &stats, nil
}

// Trend returns daily averages over the trailing days; non-positive days use
// the configured default.
func (s *Service) Trend(ctx context.Context, userID int64, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = s.trendDays
	}
	if days > 365 {
		return nil, apperrors.NewFieldError("days", "天数不能超过365")
	}
	since := s.now().AddDate(0, 0, -days)
	analyses, err := s.analyses.ListByOwner(ctx, userID, since)
	if err != nil {
		return nil, apperrors.NewInternalError("查询情感趋势失败", err)
	}
	return Trend(analyses, s.location), nil
}

// propagateScore copies the valence onto the message. Failure leaves the
// message unscored so a later call can retry.
func (s *Service) propagateScore(ctx context.Context, messageID int64, analysis *types.EmotionAnalysis) {
	if _, err := s.messages.SetEmotionScore(ctx, messageID, analysis.ValenceValue()); err != nil {
		slog.Warn("failed to propagate emotion score", "message_id", messageID, "error", err.Error())
	}
}
