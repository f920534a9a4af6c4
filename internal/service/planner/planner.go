package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/travvy-ai/travvy-backend/internal/ai/gemini"
	"github.com/travvy-ai/travvy-backend/internal/types"
)

// AI is the model surface the planner calls. *gemini.Client implements it.
type AI interface {
	GenerateContent(ctx context.Context, req *gemini.Request) (*gemini.Response, error)
}

// ConversationStore is the persistence surface for conversations.
type ConversationStore interface {
	Create(ctx context.Context, conv *types.Conversation) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*types.Conversation, error)
	UpdateContext(ctx context.Context, id uuid.UUID, context map[string]any) error
}

// MessageStore is the persistence surface for messages.
type MessageStore interface {
	Create(ctx context.Context, msg *types.Message) error
	ListByConversation(ctx context.Context, convID uuid.UUID) ([]types.Message, error)
}

// Service runs AI planning conversations and itinerary generation.
type Service struct {
	ai     AI
	convs  ConversationStore
	msgs   MessageStore
	model  string
	logger *logrus.Logger
}

// NewService creates a new planner Service.
func NewService(ai AI, convs ConversationStore, msgs MessageStore, model string, logger *logrus.Logger) *Service {
	return &Service{ai: ai, convs: convs, msgs: msgs, model: model, logger: logger}
}

// ChatRequest is one user turn in a planning conversation. A nil
// ConversationID starts a new conversation.
type ChatRequest struct {
	Message        string         `json:"message"`
	ConversationID *uuid.UUID     `json:"conversation_id,omitempty"`
	TripID         *uuid.UUID     `json:"trip_id,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
}

// ChatResponse carries the AI message and the merged conversation context.
type ChatResponse struct {
	ConversationID   uuid.UUID      `json:"conversation_id"`
	Message          types.Message  `json:"message"`
	SuggestedActions []string       `json:"suggested_actions,omitempty"`
	Context          map[string]any `json:"context"`
}

// modelReply is the structured JSON the system prompt asks the model for.
type modelReply struct {
	Reply            string         `json:"reply"`
	SuggestedActions []string       `json:"suggested_actions"`
	Preferences      map[string]any `json:"preferences"`
	PlanningStage    string         `json:"planning_stage"`
}

// ProcessMessage appends the user message, calls the model with the full
// conversation history, merges extracted preferences into the conversation
// context, and appends the assistant reply. An upstream AI failure surfaces
// as an error; there is no canned fallback reply.
func (s *Service) ProcessMessage(ctx context.Context, userID uuid.UUID, req *ChatRequest) (*ChatResponse, error) {
	conv, err := s.loadOrCreate(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	userMsg := &types.Message{
		ConversationID: conv.ID,
		Role:           types.RoleUser,
		Content:        req.Message,
		ContentType:    "text",
	}
	if err := s.msgs.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	history, err := s.msgs.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	resp, err := s.ai.GenerateContent(ctx, &gemini.Request{
		SystemInstruction: &gemini.Content{Parts: []gemini.Part{{Text: BuildConversationSystem(conv.Context)}}},
		Contents:          turnsFromHistory(history),
		GenerationConfig:  &gemini.GenerationConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return nil, fmt.Errorf("call gemini: %w", err)
	}

	reply := parseModelReply(resp.Text())

	// Merge, never replace: existing context survives turns that extract
	// nothing.
	if conv.Context == nil {
		conv.Context = map[string]any{}
	}
	mergeContext(conv.Context, reply.Preferences, reply.PlanningStage)
	if err := s.convs.UpdateContext(ctx, conv.ID, conv.Context); err != nil {
		s.logger.WithError(err).Warn("failed to persist conversation context")
	}

	metadata, _ := json.Marshal(map[string]any{
		"suggested_actions": reply.SuggestedActions,
		"model":             s.model,
	})
	assistantMsg := &types.Message{
		ConversationID: conv.ID,
		Role:           types.RoleAssistant,
		Content:        reply.Reply,
		ContentType:    "text",
		Metadata:       metadata,
	}
	if err := s.msgs.Create(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}

	return &ChatResponse{
		ConversationID:   conv.ID,
		Message:          *assistantMsg,
		SuggestedActions: reply.SuggestedActions,
		Context:          conv.Context,
	}, nil
}

// GetConversation returns a conversation with its messages.
func (s *Service) GetConversation(ctx context.Context, userID, convID uuid.UUID) (*types.ConversationWithMessages, error) {
	conv, err := s.convs.GetByID(ctx, convID, userID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.msgs.ListByConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []types.Message{}
	}
	return &types.ConversationWithMessages{Conversation: *conv, Messages: msgs}, nil
}

func (s *Service) loadOrCreate(ctx context.Context, userID uuid.UUID, req *ChatRequest) (*types.Conversation, error) {
	if req.ConversationID != nil {
		conv, err := s.convs.GetByID(ctx, *req.ConversationID, userID)
		if err != nil {
			return nil, err
		}
		return conv, nil
	}

	conv := &types.Conversation{
		UserID:  userID,
		TripID:  req.TripID,
		Context: req.Context,
		Status:  types.ConversationActive,
	}
	if conv.Context == nil {
		conv.Context = map[string]any{}
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

func turnsFromHistory(history []types.Message) []gemini.Content {
	turns := make([]gemini.Content, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Role == types.RoleAssistant {
			role = "model"
		}
		turns = append(turns, gemini.Content{
			Role:  role,
			Parts: []gemini.Part{{Text: msg.Content}},
		})
	}
	return turns
}

// parseModelReply decodes the structured reply; a model that ignored the
// JSON instruction still yields its raw text as the reply.
func parseModelReply(raw string) *modelReply {
	var reply modelReply
	if err := json.Unmarshal([]byte(stripFences(raw)), &reply); err != nil || reply.Reply == "" {
		return &modelReply{Reply: raw}
	}
	return &reply
}

func mergeContext(dst map[string]any, preferences map[string]any, stage string) {
	if len(preferences) > 0 {
		prefs, _ := dst["preferences"].(map[string]any)
		if prefs == nil {
			prefs = map[string]any{}
		}
		for k, v := range preferences {
			prefs[k] = v
		}
		dst["preferences"] = prefs
	}
	if stage != "" {
		dst["planning_stage"] = stage
	}
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
