package planner

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travvy-ai/travvy-backend/internal/ai/gemini"
	"github.com/travvy-ai/travvy-backend/internal/storage/memory"
	"github.com/travvy-ai/travvy-backend/internal/storage/postgres"
	"github.com/travvy-ai/travvy-backend/internal/types"
)

type scriptedAI struct {
	responses []string
	requests  []*gemini.Request
}

func (s *scriptedAI) GenerateContent(ctx context.Context, req *gemini.Request) (*gemini.Response, error) {
	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return nil, &gemini.APIError{Code: 500, Status: "INTERNAL", Message: "script exhausted"}
	}
	text := s.responses[0]
	s.responses = s.responses[1:]
	return &gemini.Response{Candidates: []gemini.Candidate{{
		Content: gemini.Content{Role: "model", Parts: []gemini.Part{{Text: text}}},
	}}}, nil
}

func newTestPlanner(ai AI) (*Service, *memory.ConversationStore, *memory.MessageStore) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	convs := memory.NewConversationStore()
	msgs := memory.NewMessageStore()
	return NewService(ai, convs, msgs, "gemini-1.5-pro", logger), convs, msgs
}

func TestProcessMessageCreatesConversation(t *testing.T) {
	ai := &scriptedAI{responses: []string{
		`{"reply": "Paris in June is lovely.", "suggested_actions": ["Pick dates"], "preferences": {"destination": "Paris"}, "planning_stage": "discovery"}`,
	}}
	svc, _, msgs := newTestPlanner(ai)
	userID := uuid.New()

	resp, err := svc.ProcessMessage(context.Background(), userID, &ChatRequest{Message: "I want to visit Paris"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, resp.ConversationID)
	assert.Equal(t, "Paris in June is lovely.", resp.Message.Content)
	assert.Equal(t, types.RoleAssistant, resp.Message.Role)
	assert.Equal(t, []string{"Pick dates"}, resp.SuggestedActions)

	prefs, ok := resp.Context["preferences"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Paris", prefs["destination"])
	assert.Equal(t, "discovery", resp.Context["planning_stage"])

	history, err := msgs.ListByConversation(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, types.RoleUser, history[0].Role)
	assert.Equal(t, types.RoleAssistant, history[1].Role)
}

func TestProcessMessageMergesContext(t *testing.T) {
	ai := &scriptedAI{responses: []string{
		`{"reply": "Got it.", "preferences": {"destination": "Paris"}, "planning_stage": "discovery"}`,
		`{"reply": "June works.", "preferences": {"month": "June"}, "planning_stage": "dates"}`,
	}}
	svc, _, _ := newTestPlanner(ai)
	userID := uuid.New()

	first, err := svc.ProcessMessage(context.Background(), userID, &ChatRequest{Message: "Paris please"})
	require.NoError(t, err)

	second, err := svc.ProcessMessage(context.Background(), userID, &ChatRequest{
		Message:        "sometime in June",
		ConversationID: &first.ConversationID,
	})
	require.NoError(t, err)

	// Earlier preferences survive the merge.
	prefs := second.Context["preferences"].(map[string]any)
	assert.Equal(t, "Paris", prefs["destination"])
	assert.Equal(t, "June", prefs["month"])
	assert.Equal(t, "dates", second.Context["planning_stage"])
}

func TestProcessMessageSendsHistoryAsTurns(t *testing.T) {
	ai := &scriptedAI{responses: []string{
		`{"reply": "Hello!"}`,
		`{"reply": "Sure."}`,
	}}
	svc, _, _ := newTestPlanner(ai)
	userID := uuid.New()

	first, err := svc.ProcessMessage(context.Background(), userID, &ChatRequest{Message: "hi"})
	require.NoError(t, err)
	_, err = svc.ProcessMessage(context.Background(), userID, &ChatRequest{Message: "plan a trip", ConversationID: &first.ConversationID})
	require.NoError(t, err)

	last := ai.requests[len(ai.requests)-1]
	require.Len(t, last.Contents, 3)
	assert.Equal(t, "user", last.Contents[0].Role)
	assert.Equal(t, "model", last.Contents[1].Role)
	assert.Equal(t, "user", last.Contents[2].Role)
	require.NotNil(t, last.SystemInstruction)
}

func TestProcessMessageRawTextFallback(t *testing.T) {
	ai := &scriptedAI{responses: []string{"just plain prose, no JSON"}}
	svc, _, _ := newTestPlanner(ai)

	resp, err := svc.ProcessMessage(context.Background(), uuid.New(), &ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "just plain prose, no JSON", resp.Message.Content)
	assert.Empty(t, resp.SuggestedActions)
}

func TestProcessMessageUpstreamFailure(t *testing.T) {
	svc, _, _ := newTestPlanner(&scriptedAI{})

	_, err := svc.ProcessMessage(context.Background(), uuid.New(), &ChatRequest{Message: "hello"})
	var apiErr *gemini.APIError
	require.ErrorAs(t, err, &apiErr)
}

func TestGetConversationScopedToUser(t *testing.T) {
	ai := &scriptedAI{responses: []string{`{"reply": "hi"}`}}
	svc, _, _ := newTestPlanner(ai)
	userID := uuid.New()

	resp, err := svc.ProcessMessage(context.Background(), userID, &ChatRequest{Message: "hello"})
	require.NoError(t, err)

	conv, err := svc.GetConversation(context.Background(), userID, resp.ConversationID)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)

	_, err = svc.GetConversation(context.Background(), uuid.New(), resp.ConversationID)
	assert.ErrorIs(t, err, postgres.ErrNotFound)
}

func TestStripFences(t *testing.T) {
	fenced := "```json\n{\"reply\": \"hi\"}\n```"
	assert.Equal(t, `{"reply": "hi"}`, stripFences(fenced))
	assert.Equal(t, `{"reply": "hi"}`, stripFences(`{"reply": "hi"}`))
}

func TestNormalizeDaysFillsAndTruncates(t *testing.T) {
	payload := &GenerationPayload{
		Days:      4,
		StartDate: mustDate("2026-06-01"),
		EndDate:   mustDate("2026-06-04"),
	}

	short := normalizeDays([]types.DayPlan{{Theme: "Only day"}}, payload)
	require.Len(t, short, 4)
	assert.Equal(t, 1, short[0].Day)
	assert.Equal(t, "Only day", short[0].Theme)
	assert.Equal(t, "Unplanned day", short[3].Notes)
	assert.Equal(t, mustDate("2026-06-04"), short[3].Date)
	assert.NotNil(t, short[3].Activities)

	long := normalizeDays(make([]types.DayPlan, 9), payload)
	assert.Len(t, long, 4)
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuildItineraryPromptMentionsBounds(t *testing.T) {
	p := &GenerationPayload{
		Destination: "Paris",
		Days:        5,
		StartDate:   mustDate("2026-06-01"),
		EndDate:     mustDate("2026-06-05"),
		Budget:      types.Budget{Total: 2000, Currency: "USD"},
		Travelers:   types.Travelers{Adults: 2},
	}
	prompt := BuildItineraryPrompt(p)
	assert.Contains(t, prompt, "5-day trip to Paris")
	assert.Contains(t, prompt, "2000 USD")
	assert.Contains(t, prompt, "exactly 5 objects")
}
