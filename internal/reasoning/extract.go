package reasoning

import "encoding/json"

// streamEvent mirrors the slice of an upstream chat-completion chunk this
// package reads; everything else in the payload is ignored.
type streamEvent struct {
	Choices []struct {
		Delta struct {
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
	} `json:"choices"`
}

// ExtractReasoning parses one event payload and returns the reasoning delta
// carried by the first choice. ok is false when the payload is not JSON or
// carries no reasoning text; that is the only signal a malformed payload
// produces.
func ExtractReasoning(payload string) (string, bool) {
	var ev streamEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return "", false
	}
	if len(ev.Choices) == 0 {
		return "", false
	}
	text := ev.Choices[0].Delta.ReasoningContent
	if text == "" {
		return "", false
	}
	return text, true
}
