package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/teslashibe/go-rover/pkg/action"
)

var errServiceDown = errors.New("service unavailable")

func failingCompleter() CompleterFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		return "", errServiceDown
	}
}

func fixedCompleter(reply string) CompleterFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		return reply, nil
	}
}

func TestFallbackKeywordPriority(t *testing.T) {
	tests := []struct {
		input string
		want  action.Code
	}{
		{"go forward", action.CodeForward},
		{"straight ahead", action.CodeForward},
		{"move to the front", action.CodeForward},
		{"go back", action.CodeBackward},
		{"reverse a bit", action.CodeBackward},
		{"turn left", action.CodeLeft},
		{"turn right", action.CodeRight},
		{"FORWARD NOW", action.CodeForward},
		// "forward" outranks "left" regardless of word order
		{"left then forward", action.CodeForward},
	}

	c := NewClassifier(failingCompleter())
	for _, tt := range tests {
		res := c.Classify(context.Background(), tt.input)
		if res.Action != tt.want {
			t.Errorf("Classify(%q).Action = %d, want %d", tt.input, int(res.Action), int(tt.want))
		}
		if res.Kind != action.KindCommand {
			t.Errorf("Classify(%q).Kind = %s, want command", tt.input, res.Kind)
		}
		if res.Response != tt.want.Response() {
			t.Errorf("Classify(%q).Response = %q, want registry response", tt.input, res.Response)
		}
	}
}

func TestFallbackNoMatch(t *testing.T) {
	c := NewClassifier(failingCompleter())
	res := c.Classify(context.Background(), "tell me a story")

	if res.Action != action.CodeNone {
		t.Errorf("Action = %d, want 0", int(res.Action))
	}
	if res.Kind != action.KindConversation {
		t.Errorf("Kind = %s, want conversation", res.Kind)
	}
	if res.Response != fallbackResponse {
		t.Errorf("Response = %q, want fallback response", res.Response)
	}
}

func TestClassifyServiceCommand(t *testing.T) {
	c := NewClassifier(fixedCompleter(`{"action": 3, "response": "Turning left.", "is_command": true}`))
	res := c.Classify(context.Background(), "please turn left")

	if res.Action != action.CodeLeft {
		t.Fatalf("Action = %d, want 3", int(res.Action))
	}
	if res.Kind != action.KindCommand {
		t.Errorf("Kind = %s, want command", res.Kind)
	}
	if res.Response != "Turning left." {
		t.Errorf("Response = %q", res.Response)
	}
}

func TestClassifyJSONEmbeddedInProse(t *testing.T) {
	reply := `Sure! I think you said forward. {"action": 1, "response": "Moving forward now.", "is_command": true} Let me know if that's wrong.`
	c := NewClassifier(fixedCompleter(reply))
	res := c.Classify(context.Background(), "go forward")

	if res.Action != action.CodeForward {
		t.Fatalf("Action = %d, want 1", int(res.Action))
	}
	if res.Kind != action.KindCommand {
		t.Errorf("Kind = %s, want command", res.Kind)
	}
}

func TestClassifyMarkdownFencedReply(t *testing.T) {
	reply := "```json\n{\"action\": 0, \"response\": \"Hello there!\", \"is_command\": false}\n```"
	c := NewClassifier(fixedCompleter(reply))
	res := c.Classify(context.Background(), "hi")

	if res.Action != action.CodeNone {
		t.Fatalf("Action = %d, want 0", int(res.Action))
	}
	if res.Response != "Hello there!" {
		t.Errorf("Response = %q", res.Response)
	}
}

func TestClassifyConversationFlagOverridesMovementCode(t *testing.T) {
	// The model named a movement code but flagged it as conversation.
	c := NewClassifier(fixedCompleter(`{"action": 2, "response": "Just chatting.", "is_command": false}`))
	res := c.Classify(context.Background(), "what does going backward feel like?")

	if res.Action != action.CodeNone {
		t.Errorf("Action = %d, want 0", int(res.Action))
	}
	if res.Kind != action.KindConversation {
		t.Errorf("Kind = %s, want conversation", res.Kind)
	}
}

func TestClassifyActionZeroNeverCommand(t *testing.T) {
	// is_command=true with action 0 is still conversation.
	c := NewClassifier(fixedCompleter(`{"action": 0, "response": "Hi!", "is_command": true}`))
	res := c.Classify(context.Background(), "hello")

	if res.Kind != action.KindConversation {
		t.Errorf("Kind = %s, want conversation", res.Kind)
	}
	if res.Action != action.CodeNone {
		t.Errorf("Action = %d, want 0", int(res.Action))
	}
}

func TestClassifyUnregisteredActionFallsBack(t *testing.T) {
	c := NewClassifier(fixedCompleter(`{"action": 77, "response": "Warp speed!", "is_command": true}`))
	res := c.Classify(context.Background(), "go forward")

	// Falls back to keyword rules, which still find "forward".
	if res.Action != action.CodeForward {
		t.Errorf("Action = %d, want 1", int(res.Action))
	}
}

func TestClassifyMalformedReplies(t *testing.T) {
	replies := []string{
		"",
		"not json at all",
		"{broken json",
		`{"response": "missing action", "is_command": true}`,
	}

	c := NewClassifier(fixedCompleter(""))
	for _, reply := range replies {
		c = NewClassifier(fixedCompleter(reply))
		res := c.Classify(context.Background(), "random chatter")
		if res.Action != action.CodeNone || res.Kind != action.KindConversation {
			t.Errorf("reply %q: got action %d kind %s, want conversation fallback", reply, int(res.Action), res.Kind)
		}
	}
}

func TestClassifyEmptyResponseUsesRegistryDefault(t *testing.T) {
	c := NewClassifier(fixedCompleter(`{"action": 4, "response": "", "is_command": true}`))
	res := c.Classify(context.Background(), "turn right")

	if res.Response != action.CodeRight.Response() {
		t.Errorf("Response = %q, want registry default", res.Response)
	}
}

func TestBuildPromptContainsVocabulary(t *testing.T) {
	prompt := buildPrompt("go forward")
	for _, want := range []string{"Action 1: go forward", "Action 4: turn right", `"go forward"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
