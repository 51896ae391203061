// Package document caches the mergeable document snapshot per project and
// applies incremental updates to it. The merge algorithm itself is an
// external collaborator: the hub only moves opaque blobs through a Merger.
package document

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// Merger folds an opaque incremental update into an opaque full document
// state. Implementations must be commutative and idempotent: the hub's
// snapshot read-modify-write is not guarded by a distributed lock, so
// racing writers may interleave in any order.
type Merger interface {
	Merge(state, update []byte) ([]byte, error)
}

// ErrCorruptState is returned when a cached state cannot be decoded.
var ErrCorruptState = errors.New("corrupt document state")

// ChunkSet is the built-in merge primitive: the full state is the sorted
// set of length-prefixed update chunks. Set union is commutative and
// idempotent, which is exactly the contract the hub relies on. Real
// deployments inject a CRDT binding instead.
type ChunkSet struct{}

// NewChunkSet creates the built-in chunk-set merger.
func NewChunkSet() *ChunkSet {
	return &ChunkSet{}
}

// Merge adds the update to the state's chunk set and re-encodes the result.
// Merging an empty update is a no-op; merging into nil state starts from
// the empty document.
func (ChunkSet) Merge(state, update []byte) ([]byte, error) {
	chunks, err := decodeChunks(state)
	if err != nil {
		return nil, err
	}

	if len(update) > 0 {
		if _, ok := chunks[string(update)]; !ok {
			chunks[string(update)] = struct{}{}
		}
	}

	return encodeChunks(chunks), nil
}

func decodeChunks(state []byte) (map[string]struct{}, error) {
	chunks := make(map[string]struct{})
	for len(state) > 0 {
		size, n := binary.Uvarint(state)
		if n <= 0 {
			return nil, fmt.Errorf("%w: bad chunk header", ErrCorruptState)
		}
		state = state[n:]
		if uint64(len(state)) < size {
			return nil, fmt.Errorf("%w: truncated chunk", ErrCorruptState)
		}
		chunks[string(state[:size])] = struct{}{}
		state = state[size:]
	}
	return chunks, nil
}

func encodeChunks(chunks map[string]struct{}) []byte {
	keys := make([]string, 0, len(chunks))
	for k := range chunks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []byte
	var header [binary.MaxVarintLen64]byte
	for _, k := range keys {
		n := binary.PutUvarint(header[:], uint64(len(k)))
		out = append(out, header[:n]...)
		out = append(out, k...)
	}
	return out
}
