package agent

import (
	"context"
	"iter"
	"strings"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/velvetlabs/amora/internal/types"
)

type fakeLLM struct {
	reply    string
	lastReq  *model.LLMRequest
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	f.lastReq = req
	return func(yield func(*model.LLMResponse, error) bool) {
		yield(&model.LLMResponse{
			Content: &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: f.reply}},
			},
		}, nil)
	}
}

func TestReplyMapsRoles(t *testing.T) {
	llm := &fakeLLM{reply: "hey you 💕"}
	companion, err := NewCompanion(llm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	window := []types.ConversationTurn{
		{Role: types.RoleSystem, Content: "You are Amora."},
		{Role: types.RoleAssistant, Content: "hi!"},
		{Role: types.RoleUser, Content: "hey"},
	}
	reply, err := companion.Reply(context.Background(), window)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "hey you 💕" {
		t.Fatalf("got %q", reply)
	}

	roles := make([]string, 0, len(llm.lastReq.Contents))
	for _, content := range llm.lastReq.Contents {
		roles = append(roles, string(content.Role))
	}
	want := []string{"system", "model", "user"}
	for i, role := range want {
		if roles[i] != role {
			t.Fatalf("got roles %v, want %v", roles, want)
		}
	}
}

func TestReplyEmptyWindow(t *testing.T) {
	companion, _ := NewCompanion(&fakeLLM{})
	if _, err := companion.Reply(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty window")
	}
}

func TestPersonaPrompt(t *testing.T) {
	got := PersonaPrompt("You are Amora.", types.StageIntimate, true, "3 days in a row 💕")
	if !strings.Contains(got, "You are Amora.") {
		t.Fatalf("base prompt missing: %q", got)
	}
	if !strings.Contains(got, "intimate") {
		t.Fatalf("stage missing: %q", got)
	}
	if !strings.Contains(got, "3 days in a row") {
		t.Fatalf("streak line missing: %q", got)
	}
	if !strings.Contains(got, "deepened") {
		t.Fatalf("stage change note missing: %q", got)
	}
}

func TestPersonaPromptPlain(t *testing.T) {
	got := PersonaPrompt("You are Amora.", types.StageNew, false, "")
	if strings.Contains(got, "streak") || strings.Contains(got, "deepened") {
		t.Fatalf("plain prompt must omit extras: %q", got)
	}
}
