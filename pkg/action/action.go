// Package action defines the closed set of discrete robot actions and the
// registry mapping each action code to its name and default spoken response.
//
// Code 0 is reserved for conversational input that carries no physical
// action. Codes 1-4 are movement commands. The set is extensible only by
// explicit registration.
package action

import (
	"fmt"
	"sort"
	"sync"
)

// Code identifies a discrete robot action.
type Code int

// Registered action codes.
const (
	CodeNone     Code = 0 // conversational, no physical action
	CodeForward  Code = 1
	CodeBackward Code = 2
	CodeLeft     Code = 3
	CodeRight    Code = 4
)

// Kind distinguishes movement commands from conversational exchanges.
type Kind string

const (
	// KindCommand marks input resolved to a movement action (codes 1-4).
	KindCommand Kind = "command"
	// KindConversation marks input with no physical action (code 0).
	KindConversation Kind = "conversation"
)

// Action describes a registered action.
type Action struct {
	Code     Code
	Name     string
	Response string // default spoken response
}

var (
	mu       sync.RWMutex
	registry = map[Code]Action{
		CodeNone:     {CodeNone, "do nothing", "I understand."},
		CodeForward:  {CodeForward, "go forward", "Moving forward now."},
		CodeBackward: {CodeBackward, "go backward", "Going backward."},
		CodeLeft:     {CodeLeft, "turn left", "Turning left."},
		CodeRight:    {CodeRight, "turn right", "Turning right."},
	}
)

// Register adds a new action code to the registry. Registering an existing
// code overwrites its name and response.
func Register(code Code, name, response string) {
	mu.Lock()
	defer mu.Unlock()
	registry[code] = Action{Code: code, Name: name, Response: response}
}

// Lookup returns the registered action for code.
func Lookup(code Code) (Action, bool) {
	mu.RLock()
	defer mu.RUnlock()
	a, ok := registry[code]
	return a, ok
}

// Registered reports whether code exists in the registry.
func Registered(code Code) bool {
	_, ok := Lookup(code)
	return ok
}

// IsCommand reports whether code is a registered movement command.
// Code 0 is never a command.
func (c Code) IsCommand() bool {
	return c != CodeNone && Registered(c)
}

// Name returns the registered name for c, or "unknown".
func (c Code) Name() string {
	if a, ok := Lookup(c); ok {
		return a.Name
	}
	return "unknown"
}

// Response returns the default spoken response for c, or "".
func (c Code) Response() string {
	if a, ok := Lookup(c); ok {
		return a.Response
	}
	return ""
}

// String implements fmt.Stringer.
func (c Code) String() string {
	return fmt.Sprintf("%d (%s)", int(c), c.Name())
}

// Commands returns the registered movement codes in ascending order.
func Commands() []Code {
	mu.RLock()
	defer mu.RUnlock()
	var codes []Code
	for c := range registry {
		if c != CodeNone {
			codes = append(codes, c)
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
