// Package ingest is the bounded-concurrency fetch/decode/compact/persist
// pipeline: height->hash and hash->block worker pools feeding a fixed
// compression pool, a single persister, and a sequential post-processor
// that reorders the compression pool's out-of-order output back into
// strictly ascending height order before driving augmentation.
package ingest

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ordhord/hord/internal/bitcoin"
	"github.com/ordhord/hord/internal/compact"
	"github.com/ordhord/hord/internal/inscriptions"
	"github.com/ordhord/hord/internal/metrics"
	"github.com/ordhord/hord/internal/store"
)

const compressPoolSize = 8

const channelBuffer = 64

type heightHashMsg struct {
	Height int64
	Hash   string
}

type rawBlockMsg struct {
	Height int64
	Raw    *bitcoin.RawBlockBreakdown
}

type compactedMsg struct {
	Height int64
	Block  *compact.Block
}

// Pipeline drives a bounded-concurrency ingestion run against a single
// store and registry.
type Pipeline struct {
	rpc              bitcoin.BitcoinRPC
	store            *store.Store
	registry         *inscriptions.Registry
	network          string
	networkThreads   int
	activationHeight uint32
	logger           *zap.Logger
}

// New builds a Pipeline. networkThreads sizes both the hash-fetch and
// block-fetch worker pools; the compression pool is always 8 workers.
func New(rpc bitcoin.BitcoinRPC, s *store.Store, registry *inscriptions.Registry, network string, networkThreads int, activationHeight uint32, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		rpc:              rpc,
		store:            s,
		registry:         registry,
		network:          network,
		networkThreads:   networkThreads,
		activationHeight: activationHeight,
		logger:           logger,
	}
}

// poolCloser sends exactly one sentinel (nil, by convention of the
// caller's channel element type) once every worker in a pool has
// exited, so the single downstream consumer sees end-of-stream exactly
// once regardless of how many producers fed the channel. Worker errors
// are never fatal to the pool (each worker logs and continues past a
// failed fetch), so the errgroup's own error is always nil here — it
// is used purely for its WaitGroup-equivalent join.
func poolCloser(eg *errgroup.Group, signal func()) {
	eg.Wait()
	signal()
}

// Ingest fetches, compacts, and persists every height in [start, end),
// and in parallel drives the sequential post-processor over the same
// range starting no earlier than the activation height. It returns
// once every upstream stage has drained into the persister and the
// post-processor has stopped (on augmentation error or its own
// end-of-stream). A height whose fetch or compaction fails is skipped,
// so fewer than end-start blocks may be persisted; that is logged as a
// warning, not returned as an error.
func (p *Pipeline) Ingest(ctx context.Context, start, end int64) error {
	if start > end {
		return nil
	}
	total := end - start

	heightsIn := make(chan int64, p.networkThreads)
	go func() {
		defer close(heightsIn)
		for h := start; h < end; h++ {
			select {
			case heightsIn <- h:
			case <-ctx.Done():
				return
			}
		}
	}()

	hashOut := make(chan *heightHashMsg, channelBuffer)
	var hashEg errgroup.Group
	for i := 0; i < p.networkThreads; i++ {
		hashEg.Go(func() error {
			p.hashFetchWorker(ctx, heightsIn, hashOut)
			return nil
		})
	}
	go poolCloser(&hashEg, func() { hashOut <- nil })

	hashWork := make(chan *heightHashMsg, p.networkThreads)
	go p.dispatchHashes(ctx, hashOut, hashWork)

	rawOut := make(chan *rawBlockMsg, channelBuffer)
	var fetchEg errgroup.Group
	for i := 0; i < p.networkThreads; i++ {
		fetchEg.Go(func() error {
			p.blockFetchWorker(ctx, hashWork, rawOut)
			return nil
		})
	}
	go poolCloser(&fetchEg, func() { rawOut <- nil })

	rawWork := make(chan *rawBlockMsg, compressPoolSize)
	go p.dispatchRaw(ctx, rawOut, rawWork)

	compactedOut := make(chan *compactedMsg, channelBuffer)
	postProcessCh := make(chan *rawBlockMsg, channelBuffer)
	var compressEg errgroup.Group
	for i := 0; i < compressPoolSize; i++ {
		compressEg.Go(func() error {
			p.compressWorker(rawWork, compactedOut, postProcessCh)
			return nil
		})
	}
	go poolCloser(&compressEg, func() {
		compactedOut <- nil
		postProcessCh <- nil
	})

	postProcErrCh := make(chan error, 1)
	go func() {
		postProcErrCh <- p.runPostProcessor(postProcessCh)
	}()

	persisted, err := p.persist(compactedOut)
	postProcErr := <-postProcErrCh

	if err != nil {
		return err
	}
	if persisted != total {
		p.logger.Warn("ingest persisted fewer blocks than requested",
			zap.Int64("persisted", persisted), zap.Int64("requested", total))
	}
	if postProcErr != nil {
		p.logger.Warn("sequential post-processor stopped early", zap.Error(postProcErr))
	}
	return nil
}

func (p *Pipeline) hashFetchWorker(ctx context.Context, in <-chan int64, out chan<- *heightHashMsg) {
	for height := range in {
		hash, err := p.rpc.FetchBlockHash(ctx, height)
		if err != nil {
			p.logger.Error("fetch_block_hash failed", zap.Int64("height", height), zap.Error(err))
			continue
		}
		out <- &heightHashMsg{Height: height, Hash: hash}
	}
}

// dispatchHashes is the single-threaded stage-2 dispatcher: it submits
// each (height, hash) pair to the block-fetch pool without blocking on
// a per-iteration join, so the pool's own bounded worker count is the
// only concurrency cap.
func (p *Pipeline) dispatchHashes(ctx context.Context, in <-chan *heightHashMsg, out chan<- *heightHashMsg) {
	defer close(out)
	for {
		select {
		case msg := <-in:
			if msg == nil {
				return
			}
			out <- msg
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) blockFetchWorker(ctx context.Context, in <-chan *heightHashMsg, out chan<- *rawBlockMsg) {
	for msg := range in {
		raw, err := p.rpc.FetchBlock(ctx, msg.Hash)
		if err != nil {
			p.logger.Error("fetch_block failed", zap.Int64("height", msg.Height), zap.String("hash", msg.Hash), zap.Error(err))
			continue
		}
		metrics.InFlightRawBlocks.Inc()
		out <- &rawBlockMsg{Height: msg.Height, Raw: raw}
	}
}

func (p *Pipeline) dispatchRaw(ctx context.Context, in <-chan *rawBlockMsg, out chan<- *rawBlockMsg) {
	defer close(out)
	for {
		select {
		case msg := <-in:
			if msg == nil {
				return
			}
			out <- msg
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) compressWorker(in <-chan *rawBlockMsg, out chan<- *compactedMsg, postProcess chan<- *rawBlockMsg) {
	for msg := range in {
		block, err := compact.FromRaw(msg.Raw)
		metrics.InFlightRawBlocks.Dec()
		if err != nil {
			p.logger.Error("compact failed", zap.Int64("height", msg.Height), zap.Error(err))
			continue
		}
		if uint32(msg.Height) >= p.activationHeight {
			postProcess <- msg
		}
		out <- &compactedMsg{Height: msg.Height, Block: block}
	}
}

// persist is the single stage-4 consumer: every compacted block is
// written in arrival order (not height order), counted until the
// upstream sentinel arrives.
func (p *Pipeline) persist(in <-chan *compactedMsg) (int64, error) {
	var persisted int64
	for {
		msg := <-in
		if msg == nil {
			return persisted, nil
		}
		hexBlob, err := compact.ToStorageForm(msg.Block)
		if err != nil {
			p.logger.Error("encode failed", zap.Int64("height", msg.Height), zap.Error(err))
			continue
		}
		if err := p.store.PutBlock(uint32(msg.Height), hexBlob); err != nil {
			return persisted, err
		}
		metrics.BlocksIngested.Inc()
		persisted++
	}
}
