package score

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgallion1/docmark/internal/chunker"
)

// MaxChunkChars caps the text sent per chunk.
const MaxChunkChars = 1600

const SystemPrompt = `You score provided PDF text chunks for relevance to the user's background and stated document goal. ` +
	`Return ONLY a JSON list of objects with keys: id (int), relevance (float 0-1), rationale (string <=25 words), phrase (string). ` +
	`phrase = ONE short cohesive human-friendly label 1-4 words (no quotes, no trailing punctuation) summarizing the chunk ` +
	`(e.g. AMD Instinct GPUs, Hyperscaler demand signal, Roadmap differentiation). ` +
	`No commentary before or after JSON.`

type payloadChunk struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type payload struct {
	GlobalProfile string         `json:"global_profile"`
	DocumentGoal  string         `json:"document_goal"`
	Chunks        []payloadChunk `json:"chunks"`
}

// BuildMessages returns the system prompt and the JSON user message for a batch.
func BuildMessages(chunks []chunker.TextChunk, profile, goal string) (system, user string, err error) {
	p := payload{
		GlobalProfile: strings.TrimSpace(profile),
		DocumentGoal:  strings.TrimSpace(goal),
		Chunks:        make([]payloadChunk, 0, len(chunks)),
	}
	for _, c := range chunks {
		text := c.Text
		if r := []rune(text); len(r) > MaxChunkChars {
			text = string(r[:MaxChunkChars])
		}
		p.Chunks = append(p.Chunks, payloadChunk{ID: c.ID, Text: text})
	}
	body, err := json.Marshal(p)
	if err != nil {
		return "", "", fmt.Errorf("marshal payload: %w", err)
	}
	return SystemPrompt, string(body), nil
}
