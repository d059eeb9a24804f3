package ingest

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ordhord/hord/internal/augment"
	"github.com/ordhord/hord/internal/metrics"
	"github.com/ordhord/hord/internal/standardize"
)

// runPostProcessor consumes raw blocks at or above the activation
// height, which the compression pool delivers out of order, and
// replays them through standardize+augment strictly in ascending
// height order using a cursor and an inbox of not-yet-due blocks. It
// stops processing as soon as augmentation fails for any block, since
// every later block's resolution may depend on the store state the
// failed block was supposed to leave behind. After a failure it still
// receives and discards its input up to the end-of-stream sentinel, so
// the compression pool feeding it never blocks.
func (p *Pipeline) runPostProcessor(in <-chan *rawBlockMsg) error {
	cursor := int64(p.activationHeight)
	inbox := make(map[int64]*rawBlockMsg)

	for {
		msg := <-in
		if msg == nil {
			return p.drainInbox(cursor, inbox)
		}
		inbox[msg.Height] = msg

		for {
			pending, ok := inbox[cursor]
			if !ok {
				break
			}
			delete(inbox, cursor)
			if err := p.processOne(pending); err != nil {
				for m := <-in; m != nil; m = <-in {
				}
				return err
			}
			cursor++
		}
	}
}

// drainInbox is reached once the upstream sentinel has arrived: any
// block still parked at the cursor position is processed, but a gap
// (some earlier height never arrived) ends the run without error,
// since the pipeline's own bookkeeping guarantees every requested
// height was submitted upstream.
func (p *Pipeline) drainInbox(cursor int64, inbox map[int64]*rawBlockMsg) error {
	for {
		pending, ok := inbox[cursor]
		if !ok {
			return nil
		}
		delete(inbox, cursor)
		if err := p.processOne(pending); err != nil {
			return err
		}
		cursor++
	}
}

func (p *Pipeline) processOne(msg *rawBlockMsg) error {
	block, err := standardize.StandardizeBlock(msg.Raw, p.network)
	if err != nil {
		metrics.AugmentationFailures.Inc()
		return fmt.Errorf("standardize height %d: %w", msg.Height, err)
	}

	if err := augment.AugmentAndUpdate(block, p.registry, p.store, p.logger); err != nil {
		metrics.AugmentationFailures.Inc()
		return fmt.Errorf("augment height %d: %w", msg.Height, err)
	}

	metrics.SequentialCursorHeight.Set(float64(msg.Height))
	p.logger.Info("block augmented", zap.Int64("height", msg.Height))
	return nil
}
