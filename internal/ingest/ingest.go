// Package ingest feeds conversation transcripts into the message index:
// line-delimited records are decoded, their prose extracted, embedded in
// bounded batches, and upserted with lexical terms and code symbols. Delta
// mode processes only the appended suffix of a transcript, verified by a
// checksum of the previously recorded head so a rewritten file is
// re-ingested in full instead of silently mis-deltaed.
package ingest

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/embedder"
	"github.com/recallhq/recall/internal/store"
	"github.com/recallhq/recall/internal/terms"
	"github.com/recallhq/recall/pkg/types"
)

// DefaultBatchSize bounds how many messages go into one embedding call
const DefaultBatchSize = 32

// maxLineBytes is the scanner buffer cap. Transcript lines carry whole
// tool results, so they get room.
const maxLineBytes = 16 * 1024 * 1024

// ProgressFunc receives advisory progress during a run
type ProgressFunc func(stage string, done, total int)

// Config tunes one ingestion run. nil means defaults.
type Config struct {
	BatchSize int // messages per embedding call
	Progress  ProgressFunc
}

// Stats reports what one ingestion run did
type Stats struct {
	Transcript       string
	Project          string
	LinesSeen        int
	MessagesIngested int
	MessagesEmbedded int
	SkippedNoText    int // valid records with no extractable prose
	Malformed        int // lines that failed to decode
	Unembedded       int // ingested without a vector after a batch failure
	Rewritten        bool
	Duration         time.Duration
	Errors           []string
}

// Pipeline ingests transcripts for one project at a time
type Pipeline struct {
	store    *store.Store
	embedder embedder.Embedder
	logger   *slog.Logger
}

// New creates an ingestion pipeline. emb may be nil, which leaves messages
// lexical-only.
func New(st *store.Store, emb embedder.Embedder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: st, embedder: emb, logger: logger}
}

// IngestFull (re-)ingests an entire transcript, dropping whatever was
// previously indexed for it first.
func (p *Pipeline) IngestFull(ctx context.Context, project, transcriptPath string, cfg *Config) (*Stats, error) {
	return p.run(ctx, project, transcriptPath, cfg, true)
}

// IngestDelta ingests only lines appended since the last recorded run. A
// transcript whose recorded head no longer matches is treated as rewritten
// and re-ingested in full.
func (p *Pipeline) IngestDelta(ctx context.Context, project, transcriptPath string, cfg *Config) (*Stats, error) {
	return p.run(ctx, project, transcriptPath, cfg, false)
}

func (p *Pipeline) run(ctx context.Context, project, transcriptPath string, cfg *Config, full bool) (*Stats, error) {
	start := time.Now()
	if cfg == nil {
		cfg = &Config{}
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	absPath, err := filepath.Abs(transcriptPath)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Transcript: absPath, Project: project}

	// Transcripts can be ingested before any code run. Make sure the
	// registry row exists, but never overwrite what a code run detected.
	if _, err := p.store.GetProject(ctx, project); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		reg := &store.Project{RootPath: project, IndexVersion: store.CurrentSchemaVersion}
		if err := p.store.UpsertProject(ctx, reg); err != nil {
			return nil, err
		}
	}

	lines, err := readLines(absPath)
	if err != nil {
		return nil, fmt.Errorf("read transcript %s: %w", absPath, err)
	}
	stats.LinesSeen = len(lines)

	startLine := 0
	if !full {
		state, err := p.store.GetIngestState(ctx, absPath)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Never ingested; the delta is the whole file.
		case err != nil:
			return nil, err
		default:
			if state.LineCount <= len(lines) && headHash(lines, state.LineCount) == state.HeadHash {
				startLine = state.LineCount
			} else {
				// Edited or truncated in place. Line-count arithmetic
				// would miss or duplicate messages, so start over.
				stats.Rewritten = true
				full = true
				p.logger.Warn("transcript head changed, re-ingesting",
					"transcript", absPath, "recorded_lines", state.LineCount)
			}
		}
	}

	if full {
		if err := p.store.DeleteMessagesByConversation(ctx, project, absPath); err != nil {
			return nil, err
		}
	}

	pending := p.parseLines(lines[startLine:], absPath, stats)
	if err := p.flushBatches(ctx, project, pending, batchSize, cfg.Progress, stats); err != nil {
		return nil, err
	}

	if err := p.store.UpsertIngestState(ctx, &store.IngestState{
		SourcePath: absPath,
		Project:    project,
		LineCount:  len(lines),
		HeadHash:   headHash(lines, len(lines)),
	}); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	p.logger.Info("ingestion complete",
		"transcript", absPath,
		"lines", stats.LinesSeen,
		"ingested", stats.MessagesIngested,
		"embedded", stats.MessagesEmbedded,
		"no_text", stats.SkippedNoText,
		"malformed", stats.Malformed,
		"rewritten", stats.Rewritten,
		"duration", stats.Duration)
	return stats, nil
}

// pendingMessage is one decoded message waiting for embedding and insert
type pendingMessage struct {
	msg     types.Message
	terms   []string
	symbols []string
}

// parseLines decodes transcript lines into pending messages, counting
// skips and malformed lines without failing the run.
func (p *Pipeline) parseLines(lines [][]byte, transcriptPath string, stats *Stats) []pendingMessage {
	pending := make([]pendingMessage, 0, len(lines))
	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		parsed, ok, err := ParseLine(line)
		if err != nil {
			stats.Malformed++
			p.logger.Warn("malformed transcript line",
				"transcript", transcriptPath, "line", i+1, "error", err)
			continue
		}
		if !ok {
			stats.SkippedNoText++
			continue
		}
		pending = append(pending, pendingMessage{
			msg: types.Message{
				MsgID:            newMessageID(),
				ConversationFile: transcriptPath,
				Role:             parsed.Role,
				TS:               parsed.TS,
				Text:             parsed.Text,
			},
			terms:   terms.Tokenize(parsed.Text),
			symbols: terms.ExtractCodeSymbols(parsed.Text),
		})
	}
	return pending
}

// flushBatches embeds and inserts pending messages in bounded batches.
// Batching exists purely to bound embedding-call cost; a failed batch is
// inserted without vectors and counted, other batches continue.
func (p *Pipeline) flushBatches(ctx context.Context, project string, pending []pendingMessage, batchSize int, progress ProgressFunc, stats *Stats) error {
	for startIdx := 0; startIdx < len(pending); startIdx += batchSize {
		end := min(startIdx+batchSize, len(pending))
		batch := pending[startIdx:end]

		if progress != nil {
			progress("ingest", startIdx, len(pending))
		}

		var vectors [][]float32
		if p.embedder != nil {
			texts := make([]string, len(batch))
			for i, pm := range batch {
				texts[i] = pm.msg.Text
			}
			vecs, err := p.embedder.EmbedBatch(ctx, texts)
			if err != nil || len(vecs) != len(batch) {
				stats.Unembedded += len(batch)
				stats.Errors = append(stats.Errors,
					fmt.Sprintf("embed batch of %d: %v", len(batch), err))
				p.logger.Warn("embedding batch failed",
					"size", len(batch), "error", err)
			} else {
				vectors = vecs
			}
		}

		for i, pm := range batch {
			if err := p.store.InsertMessage(ctx, project, &pm.msg); err != nil {
				return err
			}
			if err := p.store.ReplaceMessageTerms(ctx, pm.msg.MsgID, pm.terms); err != nil {
				return err
			}
			if err := p.store.ReplaceMessageSymbols(ctx, pm.msg.MsgID, pm.symbols); err != nil {
				return err
			}
			stats.MessagesIngested++
			if vectors != nil {
				if err := p.store.UpsertMessageVector(ctx, pm.msg.MsgID, vectors[i],
					p.embedder.Provider(), p.embedder.Model()); err != nil {
					return err
				}
				stats.MessagesEmbedded++
			}
		}
	}
	if progress != nil {
		progress("ingest", len(pending), len(pending))
	}
	return nil
}

// newMessageID returns a time-ordered random message ID. Messages are
// append-only, so IDs need uniqueness and rough time order, not the
// content-hash stability code nodes require.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; fall back to V4.
		id = uuid.New()
	}
	return id.String()
}

// readLines loads a transcript as raw lines, trailing newline excluded
func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var lines [][]byte
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// headHash checksums the first n lines so a rewritten transcript is
// detected instead of trusted. n is clamped to what is actually present.
func headHash(lines [][]byte, n int) string {
	if n > len(lines) {
		n = len(lines)
	}
	h := sha256.New()
	for _, line := range lines[:n] {
		h.Write(line)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
