// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agent

import (
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"
)

// Event is one step of an agent run: a model message, a batch of tool
// results, or a final answer.
type Event struct {
	ID string

	Timestamp time.Time

	InvocationID string

	// Branch is the agent path that produced the event.
	Branch string

	// Author is the name of the agent that produced the event.
	Author string

	Message *a2a.Message

	Actions EventActions
}

// EventActions captures side effects attached to an event.
type EventActions struct {
	// StateDelta contains the state keys the event wrote.
	StateDelta map[string]any
}

// NewEvent creates an event with a generated ID and the current time.
func NewEvent(invocationID string) *Event {
	return &Event{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		InvocationID: invocationID,
		Actions:      EventActions{StateDelta: make(map[string]any)},
	}
}

// IsFinalResponse reports whether the event ends its author's turn: it
// carries neither tool calls nor tool results.
func (e *Event) IsFinalResponse() bool {
	return !e.HasToolCalls() && !e.HasToolResults()
}

// HasToolCalls returns true if the message requests tool calls.
func (e *Event) HasToolCalls() bool {
	return hasPartOfType(e.Message, "tool_use")
}

// HasToolResults returns true if the message carries tool results.
func (e *Event) HasToolResults() bool {
	return hasPartOfType(e.Message, "tool_result")
}

// TextContent concatenates the text parts of the message.
func (e *Event) TextContent() string {
	if e == nil || e.Message == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range e.Message.Parts {
		if tp, ok := part.(a2a.TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

func hasPartOfType(msg *a2a.Message, partType string) bool {
	if msg == nil {
		return false
	}
	for _, part := range msg.Parts {
		if dp, ok := part.(a2a.DataPart); ok && dp.Data["type"] == partType {
			return true
		}
	}
	return false
}
