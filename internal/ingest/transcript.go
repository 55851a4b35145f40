package ingest

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/recallhq/recall/pkg/types"
)

// transcriptLine is the wire shape of one JSONL record. Role and content
// may sit at the top level or inside a message envelope, and content is
// either a plain string or a list of typed blocks; decodeContent flattens
// both shapes into the closed ContentBlock variant.
type transcriptLine struct {
	Type      string          `json:"type"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Message   *innerMessage   `json:"message"`
	Timestamp string          `json:"timestamp"`
}

type innerMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// rawBlock is one element of a block-list content field before it is
// narrowed into a ContentBlock.
type rawBlock struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Thinking string          `json:"thinking"`
	Name     string          `json:"name"`
	Input    json.RawMessage `json:"input"`
	Content  json.RawMessage `json:"content"`
}

// toolInput is the subset of a tool_use input that carries prose
type toolInput struct {
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

// ParsedMessage is one successfully decoded transcript record with its
// prose already extracted.
type ParsedMessage struct {
	Role string
	TS   time.Time
	Text string
}

// ParseLine decodes one transcript line into role, timestamp, and the
// concatenated text of every text-bearing content part. A syntactically
// valid record with no extractable text returns ok=false with a nil error
// so callers can count it as skipped rather than malformed.
func ParseLine(line []byte) (*ParsedMessage, bool, error) {
	var rec transcriptLine
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, false, err
	}

	role := rec.Role
	content := rec.Content
	if rec.Message != nil {
		if rec.Message.Role != "" {
			role = rec.Message.Role
		}
		if len(rec.Message.Content) > 0 {
			content = rec.Message.Content
		}
	}
	if role == "" {
		role = rec.Type
	}

	blocks, err := decodeContent(content)
	if err != nil {
		return nil, false, err
	}
	text := types.JoinBlocks(blocks)
	if strings.TrimSpace(text) == "" {
		return nil, false, nil
	}

	msg := &ParsedMessage{Role: role, Text: text}
	if rec.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, rec.Timestamp); err == nil {
			msg.TS = ts
		}
	}
	return msg, true, nil
}

// decodeContent narrows a content field into ContentBlocks. A string
// becomes a single text block; a list maps element-wise; null or absent
// content yields no blocks.
func decodeContent(raw json.RawMessage) ([]types.ContentBlock, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return []types.ContentBlock{{Type: types.BlockText, TextContent: plain}}, nil
	}

	var rawBlocks []rawBlock
	if err := json.Unmarshal(raw, &rawBlocks); err != nil {
		return nil, err
	}

	blocks := make([]types.ContentBlock, 0, len(rawBlocks))
	for _, rb := range rawBlocks {
		switch types.BlockType(rb.Type) {
		case types.BlockText:
			blocks = append(blocks, types.ContentBlock{
				Type:        types.BlockText,
				TextContent: rb.Text,
			})
		case types.BlockThinking:
			blocks = append(blocks, types.ContentBlock{
				Type:     types.BlockThinking,
				Thinking: rb.Thinking,
			})
		case types.BlockToolUse:
			var input toolInput
			if len(rb.Input) > 0 {
				// A non-object input is legal; it just carries no prose.
				_ = json.Unmarshal(rb.Input, &input)
			}
			desc := input.Description
			if desc == "" {
				desc = input.Prompt
			}
			blocks = append(blocks, types.ContentBlock{
				Type:        types.BlockToolUse,
				ToolName:    rb.Name,
				Description: desc,
			})
		case types.BlockToolResult:
			// tool_result content is itself string-or-blocks; recurse and
			// flatten to the result text.
			inner, err := decodeContent(rb.Content)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, types.ContentBlock{
				Type:       types.BlockToolResult,
				ResultText: types.JoinBlocks(inner),
			})
		default:
			// Unknown block kinds contribute no text but are not an error
		}
	}
	return blocks, nil
}
