package types

import (
	"strings"
	"time"
)

// BlockType tags one content block inside a conversation message
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockThinking   BlockType = "thinking"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is the closed variant for message content. A message body is
// either a plain string or a heterogeneous list of these blocks; Text is the
// single place that knows how to extract prose from each kind.
type ContentBlock struct {
	Type BlockType

	// BlockText
	TextContent string

	// BlockThinking
	Thinking string

	// BlockToolUse
	ToolName    string
	Description string // description/prompt pulled from the tool input

	// BlockToolResult
	ResultText string
}

// Text returns the extractable prose for this block. Block kinds with no
// text-bearing payload return "", which callers treat as skippable rather
// than an error.
func (b ContentBlock) Text() string {
	switch b.Type {
	case BlockText:
		return b.TextContent
	case BlockThinking:
		return b.Thinking
	case BlockToolUse:
		if b.Description == "" {
			return ""
		}
		if b.ToolName == "" {
			return b.Description
		}
		return b.ToolName + ": " + b.Description
	case BlockToolResult:
		return b.ResultText
	default:
		return ""
	}
}

// JoinBlocks concatenates the text of every block in document order, joined
// by newlines. Blocks with no extractable text contribute nothing.
func JoinBlocks(blocks []ContentBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if t := b.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// Message is one conversation turn. MsgID is time+random based rather than
// content-hashed: messages are append-only and never re-indexed for identity
// stability the way code nodes are.
type Message struct {
	MsgID            string
	ConversationFile string
	Role             string // "user", "assistant", ...
	TS               time.Time
	Text             string
}
