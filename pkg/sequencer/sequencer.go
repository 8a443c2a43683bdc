// Package sequencer implements the merge step the Fetch Planner runs after
// fanning out parallel cold-tier block reads (SPEC_FULL.md §5), restoring
// the original service's ensure_sequential_transactions: sort batches by
// start version, then fold them into one contiguous run, trimming
// full/partial overlaps and hard-aborting on any gap.
package sequencer

import (
	"sort"

	indexerv1 "github.com/aptos-labs/indexer-grpc-data-service/genproto/indexer/v1"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/metrics"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/xerrors"
)

// Batch is one contiguous run of transactions as returned by a single
// fetch task (cache or cold-store), identified by the version of its first
// element.
type Batch struct {
	StartVersion uint64
	Transactions []*indexerv1.Transaction
}

func (b Batch) endVersion() uint64 {
	return b.StartVersion + uint64(len(b.Transactions))
}

// Merge combines possibly-overlapping, possibly-out-of-order batches into a
// single sorted, contiguous, non-overlapping run, recording any trimmed
// overlap to the NumMultiFetchOverlappedVersions metric. It returns a
// *xerrors.SequencerGapError if any two adjacent batches (once sorted) leave
// a gap — by design this is never silently healed.
func Merge(serviceType string, batches []Batch) ([]*indexerv1.Transaction, error) {
	nonEmpty := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if len(b.Transactions) > 0 {
			nonEmpty = append(nonEmpty, b)
		}
	}
	if len(nonEmpty) == 0 {
		return nil, nil
	}

	sort.Slice(nonEmpty, func(i, j int) bool {
		return nonEmpty[i].StartVersion < nonEmpty[j].StartVersion
	})

	merged := append([]*indexerv1.Transaction(nil), nonEmpty[0].Transactions...)
	tailEnd := nonEmpty[0].endVersion()
	tailStart := nonEmpty[0].StartVersion

	for _, b := range nonEmpty[1:] {
		switch {
		case b.endVersion() <= tailEnd:
			// Fully contained in what's already merged: discard entirely.
			// The original records end_version - start_version using its
			// last-inclusive-version convention, one less than the batch's
			// element count.
			metrics.RecordOverlap(serviceType, "full", uint64(len(b.Transactions))-1)

		case b.StartVersion <= tailEnd:
			// Partial overlap (including exactly contiguous, overlap=0):
			// keep only the suffix not already covered.
			overlap := tailEnd - b.StartVersion
			if overlap > 0 {
				metrics.RecordOverlap(serviceType, "partial", overlap)
			}
			merged = append(merged, b.Transactions[overlap:]...)
			tailEnd = b.endVersion()

		default:
			return nil, &xerrors.SequencerGapError{
				PrevEnd:      tailEnd,
				NextStart:    b.StartVersion,
				BatchesFirst: tailStart,
				BatchesLast:  b.endVersion(),
			}
		}
	}

	return merged, nil
}
