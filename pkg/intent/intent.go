// Package intent resolves free text into a robot action using an external
// language-understanding service, with a deterministic keyword fallback.
//
// The external service is untrusted: its reply is parsed permissively and
// every parse or transport failure degrades to the fallback rules. Classify
// never returns an error and never panics on malformed service output.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teslashibe/go-rover/pkg/action"
)

// Completer is the external language-understanding boundary: one prompt in,
// one free-text reply out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Result is a classified intent. Transcription context is filled in by the
// caller (the command pipeline), not here.
type Result struct {
	Action   action.Code
	Response string
	Kind     action.Kind
}

// fallbackResponse is spoken when neither the service nor the keyword rules
// recognize a command.
const fallbackResponse = "I'm not sure I understood that, but I'm here to chat or help you move around!"

// fallbackRules maps keyword sets to actions, tried in order. First match wins.
var fallbackRules = []struct {
	code     action.Code
	keywords []string
}{
	{action.CodeForward, []string{"forward", "ahead", "straight", "front"}},
	{action.CodeBackward, []string{"backward", "back", "reverse"}},
	{action.CodeLeft, []string{"left"}},
	{action.CodeRight, []string{"right"}},
}

// Classifier turns text into a Result.
type Classifier struct {
	completer Completer
	logger    *slog.Logger
}

// NewClassifier creates a Classifier over the given completer.
func NewClassifier(completer Completer) *Classifier {
	return &Classifier{
		completer: completer,
		logger:    slog.Default().With("component", "intent"),
	}
}

// NewClassifierWithLogger creates a Classifier with a custom logger.
func NewClassifierWithLogger(completer Completer, logger *slog.Logger) *Classifier {
	c := NewClassifier(completer)
	c.logger = logger.With("component", "intent")
	return c
}

// serviceReply is the strict JSON shape requested from the service.
type serviceReply struct {
	Action    *int   `json:"action"`
	Response  string `json:"response"`
	IsCommand bool   `json:"is_command"`
}

// Classify resolves text to an action. Service failures and malformed
// replies fall back to keyword matching; the fallback always produces a
// result.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	reply, err := c.completer.Complete(ctx, buildPrompt(text))
	if err != nil {
		c.logger.Warn("classification service failed, using fallback", "error", err)
		return c.fallback(text)
	}

	parsed, err := parseReply(reply)
	if err != nil {
		c.logger.Warn("unusable classification reply, using fallback",
			"error", err,
			"reply_len", len(reply),
		)
		return c.fallback(text)
	}

	code := action.Code(*parsed.Action)
	if !action.Registered(code) {
		c.logger.Warn("service returned unregistered action, using fallback", "action", int(code))
		return c.fallback(text)
	}

	response := parsed.Response
	if response == "" {
		response = code.Response()
	}

	// Action 0 is conversation no matter what the model claimed, and a
	// command is only a command for a registered movement code.
	if !parsed.IsCommand || !code.IsCommand() {
		if code.IsCommand() {
			// Model said "not a command" but named a movement code; trust
			// the flag and treat it as conversation.
			code = action.CodeNone
		}
		return Result{Action: code, Response: response, Kind: action.KindConversation}
	}

	return Result{Action: code, Response: response, Kind: action.KindCommand}
}

// fallback applies the deterministic keyword rules. It never fails.
func (c *Classifier) fallback(text string) Result {
	lower := strings.ToLower(text)
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return Result{
					Action:   rule.code,
					Response: rule.code.Response(),
					Kind:     action.KindCommand,
				}
			}
		}
	}
	return Result{
		Action:   action.CodeNone,
		Response: fallbackResponse,
		Kind:     action.KindConversation,
	}
}

// parseReply extracts and validates the JSON object from a service reply.
// Replies are often wrapped in prose or markdown fences, so everything
// outside the outermost braces is discarded before parsing.
func parseReply(reply string) (*serviceReply, error) {
	jsonText, err := extractJSON(reply)
	if err != nil {
		return nil, err
	}

	var parsed serviceReply
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("parse reply: %w", err)
	}
	if parsed.Action == nil {
		return nil, fmt.Errorf("reply missing action field")
	}
	return &parsed, nil
}

// extractJSON returns the substring between the first '{' and the last '}'.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object in reply")
	}
	return s[start : end+1], nil
}

// buildPrompt embeds the registered action vocabulary, the requested JSON
// shape and the user input into a single classification prompt.
func buildPrompt(userInput string) string {
	var vocab strings.Builder
	for _, code := range action.Commands() {
		fmt.Fprintf(&vocab, "- Action %d: %s\n", int(code), code.Name())
	}

	return fmt.Sprintf(`You are a friendly robot assistant that can both have conversations and perform movement actions.

Analyze the user's input and determine if they want:
1. A robot movement action (forward, backward, left, right)
2. Just a normal conversation

Available robot actions:
%s
User input: %q

If this is a MOVEMENT COMMAND, respond with JSON:
{"action": <number>, "response": "<short confirmation>", "is_command": true}

If this is just CONVERSATION, respond with JSON:
{"action": 0, "response": "<your conversational response>", "is_command": false}

Examples:
- "go forward" -> {"action": 1, "response": "Moving forward now.", "is_command": true}
- "hello how are you?" -> {"action": 0, "response": "Hello! I'm doing great, thank you for asking. How can I help you today?", "is_command": false}
- "turn left please" -> {"action": 3, "response": "Turning left.", "is_command": true}

Be conversational and friendly for non-movement inputs. Only use the listed action numbers for actual movement commands. Respond with JSON only.`, vocab.String(), userInput)
}
