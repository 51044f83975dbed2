package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/hupe1980/seqpack"
	"github.com/hupe1980/seqpack/blobstore"
	"github.com/hupe1980/seqpack/codec"
	"github.com/hupe1980/seqpack/internal/compress"
)

const (
	// CurrentFileName is the pointer to the latest checkpoint.
	CurrentFileName = "CURRENT"

	filePrefix = "checkpoint-"
	fileSuffix = ".bin"
)

// FileName returns the blob name of checkpoint id, relative to the prefix.
func FileName(id uint64) string {
	return fmt.Sprintf("%s%06d%s", filePrefix, id, fileSuffix)
}

func parseFileName(name string) (uint64, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// Store manages checkpoints and the CURRENT pointer on a blob store.
//
// Concurrent use of one Store is safe. Two Stores sharing a prefix are not
// coordinated; give every worker its own prefix.
type Store struct {
	store blobstore.Store
	opts  options
	mu    sync.Mutex
}

// NewStore creates a checkpoint store on top of store.
func NewStore(store blobstore.Store, optFns ...Option) *Store {
	o := options{
		codec:       codec.Default,
		compression: compress.LZ4,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return &Store{store: store, opts: o}
}

func (s *Store) name(rel string) string {
	return s.opts.prefix + rel
}

// Save writes st as a new checkpoint and points CURRENT at it.
// It returns the id of the new checkpoint.
func (s *Store) Save(ctx context.Context, st seqpack.State) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := Encode(st, s.opts.codec, s.opts.compression)
	if err != nil {
		return 0, err
	}

	ids, err := s.list(ctx)
	if err != nil {
		return 0, err
	}
	var id uint64 = 1
	if len(ids) > 0 {
		id = ids[len(ids)-1] + 1
	}

	filename := FileName(id)
	if err := s.store.Put(ctx, s.name(filename), data); err != nil {
		return 0, fmt.Errorf("write checkpoint %s: %w", filename, err)
	}
	// Put is atomic on every Store, so readers see either the old or the new pointer.
	if err := s.store.Put(ctx, s.name(CurrentFileName), []byte(filename)); err != nil {
		return 0, fmt.Errorf("update %s: %w", CurrentFileName, err)
	}
	return id, nil
}

// Load returns the state of the checkpoint CURRENT points at.
// It returns an error satisfying errors.Is(err, blobstore.ErrNotFound) when no
// checkpoint has been saved.
func (s *Store) Load(ctx context.Context) (seqpack.State, error) {
	return s.LoadVersion(ctx, 0)
}

// LoadVersion loads a specific checkpoint id. 0 means latest.
func (s *Store) LoadVersion(ctx context.Context, id uint64) (seqpack.State, error) {
	filename := FileName(id)
	if id == 0 {
		content, err := blobstore.ReadAll(ctx, s.store, s.name(CurrentFileName))
		if err != nil {
			return seqpack.State{}, err
		}
		filename = strings.TrimSpace(string(content))
		if _, ok := parseFileName(filename); !ok {
			return seqpack.State{}, fmt.Errorf("%w: %s names %q", ErrCorrupt, CurrentFileName, filename)
		}
	}

	data, err := blobstore.ReadAll(ctx, s.store, s.name(filename))
	if err != nil {
		return seqpack.State{}, fmt.Errorf("read checkpoint %s: %w", filename, err)
	}
	st, _, err := Decode(data)
	if err != nil {
		return seqpack.State{}, fmt.Errorf("checkpoint %s: %w", filename, err)
	}
	return st, nil
}

// Restore loads the latest checkpoint into p. It reports false without error
// when there is no checkpoint yet.
func (s *Store) Restore(ctx context.Context, p *seqpack.Packer) (bool, error) {
	st, err := s.Load(ctx)
	if errors.Is(err, blobstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := p.Restore(st); err != nil {
		return false, err
	}
	return true, nil
}

// List returns the ids of all stored checkpoints in ascending order.
func (s *Store) List(ctx context.Context) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx)
}

func (s *Store) list(ctx context.Context) ([]uint64, error) {
	names, err := s.store.List(ctx, s.name(filePrefix))
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(names))
	for _, n := range names {
		if id, ok := parseFileName(strings.TrimPrefix(n, s.opts.prefix)); ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Prune deletes all but the newest keep checkpoints and returns how many were
// removed. The checkpoint CURRENT points at is never removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.list(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) <= keep {
		return 0, nil
	}

	var current uint64
	if content, err := blobstore.ReadAll(ctx, s.store, s.name(CurrentFileName)); err == nil {
		current, _ = parseFileName(strings.TrimSpace(string(content)))
	}

	removed := 0
	for _, id := range ids[:len(ids)-keep] {
		if id == current {
			continue
		}
		if err := s.store.Delete(ctx, s.name(FileName(id))); err != nil {
			return removed, fmt.Errorf("delete checkpoint %d: %w", id, err)
		}
		removed++
	}
	return removed, nil
}
