package collective

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/hupe1980/seqpack/blobstore"
	"golang.org/x/time/rate"
)

const rankPrefix = "rank-"

type contribution struct {
	Rank  int     `json:"rank"`
	Value float64 `json:"value"`
}

// StoreGatherer is a rendezvous over a blobstore.Store.
//
// Round n of rank r is written to <prefix>/<run>/round-NNNNNN/rank-RRRRR.
// Ranks then poll the round directory until all world contributions are
// present. The store must give read-after-write listings (local disk, S3, MinIO).
type StoreGatherer struct {
	store blobstore.Store
	run   string
	rank  int
	world int
	opts  options

	mu   sync.Mutex
	next uint64
}

var _ Gatherer = (*StoreGatherer)(nil)

// NewStoreGatherer creates a gatherer for rank in a run of world ranks.
// All ranks of a run must use the same store, run name and prefix.
func NewStoreGatherer(store blobstore.Store, run string, rank, world int, optFns ...Option) (*StoreGatherer, error) {
	if world < 1 || rank < 0 || rank >= world {
		return nil, fmt.Errorf("%w: rank %d in world of %d", ErrParticipantMismatch, rank, world)
	}
	if run == "" || strings.Contains(run, "/") {
		return nil, fmt.Errorf("%w: invalid run name %q", ErrCollective, run)
	}

	return &StoreGatherer{
		store: store,
		run:   run,
		rank:  rank,
		world: world,
		opts:  applyOptions(optFns),
	}, nil
}

// Rank returns the caller's rank.
func (s *StoreGatherer) Rank() int { return s.rank }

// WorldSize returns the number of ranks.
func (s *StoreGatherer) WorldSize() int { return s.world }

func (s *StoreGatherer) roundDir(id uint64) string {
	return path.Join(s.opts.prefix, s.run, fmt.Sprintf("round-%06d", id)) + "/"
}

func rankName(rank int) string {
	return fmt.Sprintf("%s%05d", rankPrefix, rank)
}

func parseRank(name string) (int, bool) {
	s, ok := strings.CutPrefix(name, rankPrefix)
	if !ok {
		return 0, false
	}
	r, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return r, true
}

// AllGather writes this rank's contribution and waits for all others.
func (s *StoreGatherer) AllGather(ctx context.Context, v float64) ([]float64, error) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.mu.Unlock()

	dir := s.roundDir(id)
	if err := s.contribute(ctx, dir, v); err != nil {
		return nil, err
	}

	logger := s.opts.logger.With("run", s.run, "round", id, "rank", s.rank)
	limiter := rate.NewLimiter(rate.Every(s.opts.pollInterval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, wrap(fmt.Sprintf("round %d", id), err)
		}

		arrivals, err := s.poll(ctx, dir)
		if err != nil {
			return nil, err
		}
		if arrivals.Complete() {
			break
		}
		logger.Debug("waiting for ranks",
			"arrived", arrivals.Count(),
			"world", s.world,
		)
	}

	values, err := s.collect(ctx, dir)
	if err != nil {
		return nil, err
	}
	logger.Debug("all-gather completed")
	return values, nil
}

func (s *StoreGatherer) contribute(ctx context.Context, dir string, v float64) error {
	name := dir + rankName(s.rank)

	blob, err := s.store.Open(ctx, name)
	switch {
	case err == nil:
		_ = blob.Close()
		return fmt.Errorf("%w: rank %d in %s", ErrRankConflict, s.rank, dir)
	case !errors.Is(err, blobstore.ErrNotFound):
		return wrap("check contribution", err)
	}

	data, err := s.opts.codec.Marshal(contribution{Rank: s.rank, Value: v})
	if err != nil {
		return wrap("encode contribution", err)
	}
	if err := s.store.Put(ctx, name, data); err != nil {
		return wrap("write contribution", err)
	}
	return nil
}

func (s *StoreGatherer) poll(ctx context.Context, dir string) (*Arrivals, error) {
	names, err := s.store.List(ctx, dir)
	if err != nil {
		return nil, wrap("list contributions", err)
	}

	arrivals := NewArrivals(s.world)
	for _, name := range names {
		rank, ok := parseRank(strings.TrimPrefix(name, dir))
		if !ok {
			continue
		}
		if err := arrivals.Add(rank); err != nil {
			return nil, err
		}
	}
	return arrivals, nil
}

func (s *StoreGatherer) collect(ctx context.Context, dir string) ([]float64, error) {
	values := make([]float64, s.world)
	for r := range values {
		data, err := blobstore.ReadAll(ctx, s.store, dir+rankName(r))
		if err != nil {
			return nil, wrap("read contribution", err)
		}

		var c contribution
		if err := s.opts.codec.Unmarshal(data, &c); err != nil {
			return nil, wrap("decode contribution", err)
		}
		if c.Rank != r {
			return nil, fmt.Errorf("%w: blob for rank %d names rank %d", ErrParticipantMismatch, r, c.Rank)
		}
		values[r] = c.Value
	}
	return values, nil
}
