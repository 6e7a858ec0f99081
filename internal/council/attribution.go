package council

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Contributor is one entry of a consensus strategy's attribution block:
// which personality's idea fed into which part of the synthesized answer.
type Contributor struct {
	PersonalityName string `json:"personality_name"`
	Contribution    string `json:"contribution"`
}

var (
	fencedJSONBlock = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	bareJSONBlock   = regexp.MustCompile(`(?s)\{\s*"contributors"\s*:\s*\[.*?\]\s*\}`)
)

type attributionPayload struct {
	Contributors []Contributor `json:"contributors"`
}

// ParseAttribution extracts a trailing attribution block from a consensus
// response: a fenced ```json block first, then a bare {"contributors": [...]}
// object. On success it returns the parsed contributors and the response
// text with the matched block removed; on failure it returns the text
// unchanged and a nil contributor list.
func ParseAttribution(text string) (cleaned string, contributors []Contributor) {
	if loc := fencedJSONBlock.FindStringSubmatchIndex(text); loc != nil {
		var payload attributionPayload
		if json.Unmarshal([]byte(text[loc[2]:loc[3]]), &payload) == nil {
			return strings.TrimSpace(text[:loc[0]] + text[loc[1]:]), payload.Contributors
		}
	}
	if loc := bareJSONBlock.FindStringIndex(text); loc != nil {
		var payload attributionPayload
		if json.Unmarshal([]byte(text[loc[0]:loc[1]]), &payload) == nil {
			return strings.TrimSpace(text[:loc[0]] + text[loc[1]:]), payload.Contributors
		}
	}
	return text, nil
}

var vetoPhrases = []string{"fatal flaw", "critical risk"}

// HasVetoFlag reports whether a Stage 2 ranking's free text raised a veto
// per the heuristic substring check (spec.md's consensus-strategy note).
func HasVetoFlag(rankingText string) bool {
	lower := strings.ToLower(rankingText)
	for _, phrase := range vetoPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
