package app

import (
	"fmt"
	"maps"
	"slices"

	"docfill/internal/model"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	msgAllFilled   = "All placeholders are now filled. You can preview and download the completed document."
	msgNothingToDo = "No placeholders require input."
	msgIdle        = "Please provide input or check your session."
	msgEditFailed  = "Sorry, I couldn't apply that edit. Please try again."
)

// Chat actions, in dispatch priority order.
const (
	ActionFillAll = "fill_all"
	ActionStart   = "start"
	ActionEdit    = "edit"
	ActionAnswer  = "answer"
	ActionIdle    = "idle"
)

type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type ChatState struct {
	Filled  []string `json:"filled"`
	Pending *string  `json:"pending"`
}

type ChatReply struct {
	Messages []ChatMessage `json:"messages"`
	Done     bool          `json:"done"`
	State    ChatState     `json:"state"`
}

type ChatInput struct {
	SessionID string
	Message   string
	Start     bool
	FillAll   map[string]string
	EditMode  bool
}

// dispatch picks the action for one chat request.
func dispatch(in ChatInput, s *model.Session) string {
	switch {
	case len(in.FillAll) > 0:
		return ActionFillAll
	case in.Start:
		return ActionStart
	case in.EditMode && in.Message != "":
		return ActionEdit
	case s.Pending != "" && in.Message != "":
		return ActionAnswer
	default:
		return ActionIdle
	}
}

// conversation accumulates assistant lines for one transition.
type conversation struct {
	session  *model.Session
	messages []ChatMessage
	done     bool
}

func (c *conversation) say(format string, args ...any) {
	c.messages = append(c.messages, ChatMessage{Role: RoleAssistant, Text: fmt.Sprintf(format, args...)})
}

// advance points pending at the next unfilled placeholder, or clears it and
// marks the conversation done.
func (c *conversation) advance() {
	remaining := c.session.Remaining()
	if len(remaining) == 0 {
		c.session.Pending = ""
		c.done = true
		c.say(msgAllFilled)
		return
	}
	c.session.Pending = remaining[0]
	c.say("Next, provide a value for \"[%s]\".", remaining[0])
}

func (c *conversation) start() {
	remaining := c.session.Remaining()
	if len(remaining) == 0 {
		c.session.Pending = ""
		c.done = true
		c.say(msgNothingToDo)
		return
	}
	c.session.Pending = remaining[0]
	c.say("What value should replace \"[%s]\"?", remaining[0])
}

func (c *conversation) answer(message string) {
	name := c.session.Pending
	c.session.SetValue(name, message)
	c.session.Pending = ""
	c.say("Recorded \"%s\" for \"[%s]\".", message, name)
	c.advance()
}

func (c *conversation) fillAll(values map[string]string) {
	// Keys are merged in sorted order so the fill order is reproducible.
	for _, name := range slices.Sorted(maps.Keys(values)) {
		c.session.SetValue(name, values[name])
	}
	c.say("Filled %d placeholder(s) at once.", len(values))
	c.advance()
}

func (c *conversation) idle() {
	c.say(msgIdle)
}

func (c *conversation) reply() *ChatReply {
	state := ChatState{Filled: c.session.Filled()}
	if c.session.Pending != "" {
		pending := c.session.Pending
		state.Pending = &pending
	}
	return &ChatReply{Messages: c.messages, Done: c.done, State: state}
}
