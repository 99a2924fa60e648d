package ingest

import (
	"context"
	"encoding/json"
	"log"

	"storymill/dedup"
	"storymill/types"
)

// BatchMessage is one batch of candidate items published by the upstream
// scorer, with optional per-batch configuration overrides.
type BatchMessage struct {
	BatchID string            `json:"batch_id"`
	Items   []types.Item      `json:"items"`
	Options *types.RunOptions `json:"options,omitempty"`
}

// StateStore persists accepted-item keys across batches so later runs can
// re-supply them as prior state.
type StateStore interface {
	Load(ctx context.Context) (*dedup.PriorState, error)
	Record(ctx context.Context, items []types.Item) error
}

// RunArchive persists the outputs of a run.
type RunArchive interface {
	StoreRun(ctx context.Context, batchID string, unique []types.Item, report *types.Report) error
}

// BatchHandler runs the dedup engine over each consumed batch, then persists
// the retained items and report. Either collaborator may be nil; a missing
// store just narrows what happens after classification.
type BatchHandler struct {
	baseOpts dedup.Options
	state    StateStore
	archive  RunArchive
}

// NewBatchHandler wires the handler with its base engine options and
// optional persistence collaborators.
func NewBatchHandler(baseOpts dedup.Options, state StateStore, archive RunArchive) *BatchHandler {
	return &BatchHandler{baseOpts: baseOpts, state: state, archive: archive}
}

// HandleMessage implements MessageHandler. Malformed payloads are marked and
// skipped; only archive failures leave the message unmarked for retry.
func (h *BatchHandler) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	var batch BatchMessage
	if err := json.Unmarshal(message, &batch); err != nil {
		log.Printf("Warning: skipping malformed batch message: %v", err)
		return true, nil
	}

	opts := dedup.ApplyOverrides(h.baseOpts, batch.Options)
	if h.state != nil {
		prior, err := h.state.Load(ctx)
		if err != nil {
			log.Printf("Warning: failed to load prior seen state: %v", err)
		} else {
			opts.Prior = prior
		}
	}

	engine := dedup.New(opts)
	unique, report := engine.Deduplicate(batch.Items)

	log.Printf("Batch %s: %d in, %d unique, %d duplicates (%.2f%% retained)",
		batch.BatchID, report.TotalInputItems, report.UniqueItems,
		report.TotalDuplicates, report.RetentionRate)

	if h.state != nil {
		if err := h.state.Record(ctx, unique); err != nil {
			log.Printf("Warning: failed to record seen state: %v", err)
		}
	}

	if h.archive != nil {
		if err := h.archive.StoreRun(ctx, batch.BatchID, unique, report); err != nil {
			return false, err
		}
	}

	return true, nil
}
