package document

import (
	"bytes"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func mustMerge(t *testing.T, m Merger, state, update []byte) []byte {
	t.Helper()
	out, err := m.Merge(state, update)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	return out
}

func TestMergeIntoEmptyState(t *testing.T) {
	m := NewChunkSet()

	out := mustMerge(t, m, nil, []byte("hello"))
	if len(out) == 0 {
		t.Fatal("expected non-empty state after first update")
	}

	// The same update again changes nothing.
	again := mustMerge(t, m, out, []byte("hello"))
	if !bytes.Equal(out, again) {
		t.Error("re-applying an update changed the state")
	}
}

func TestMergeEmptyUpdateIsNoOp(t *testing.T) {
	m := NewChunkSet()

	state := mustMerge(t, m, nil, []byte("a"))
	out := mustMerge(t, m, state, nil)
	if !bytes.Equal(state, out) {
		t.Error("empty update changed the state")
	}
}

func TestMergeRejectsCorruptState(t *testing.T) {
	m := NewChunkSet()

	// Header claims more bytes than the payload carries.
	corrupt := []byte{0xff, 0x01}
	if _, err := m.Merge(corrupt, []byte("x")); !errors.Is(err, ErrCorruptState) {
		t.Errorf("expected ErrCorruptState, got %v", err)
	}
}

func TestMergeOrderIndependent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	m := NewChunkSet()

	properties.Property("merging updates in either order converges", prop.ForAll(
		func(a, b []byte) bool {
			ab1 := mustMergeP(m, nil, a)
			ab2 := mustMergeP(m, ab1, b)

			ba1 := mustMergeP(m, nil, b)
			ba2 := mustMergeP(m, ba1, a)

			return bytes.Equal(ab2, ba2)
		},
		gen.SliceOf(gen.UInt8()),
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("re-applying an update is idempotent", prop.ForAll(
		func(a, b []byte) bool {
			state := mustMergeP(m, mustMergeP(m, nil, a), b)
			return bytes.Equal(state, mustMergeP(m, state, a))
		},
		gen.SliceOf(gen.UInt8()),
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

func mustMergeP(m Merger, state, update []byte) []byte {
	out, err := m.Merge(state, update)
	if err != nil {
		panic(err)
	}
	return out
}
