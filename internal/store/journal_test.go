package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePass_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	p := Pass{
		ID:            "pass-1",
		SequenceID:    "seq-9",
		Seq:           3,
		Status:        PassAborted,
		Error:         "MUTATION_REJECTED: replace instance refused by editor",
		MutationCount: 2,
	}
	require.NoError(t, s.WritePass(ctx, p))

	got, err := s.ReadPass(ctx, "pass-1")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestWritePass_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestPass("pass-1", 1)
	require.NoError(t, s.WritePass(ctx, first))

	second := first
	second.Seq = 99
	require.NoError(t, s.WritePass(ctx, second), "duplicate id is ignored")

	got, err := s.ReadPass(ctx, "pass-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Seq, "first write wins")
}

func TestWritePass_Invalid(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		pass Pass
	}{
		{"empty id", Pass{Status: PassCompleted}},
		{"unknown status", Pass{ID: "p", Status: "done"}},
		{"negative count", Pass{ID: "p", Status: PassCompleted, MutationCount: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, s.WritePass(ctx, tt.pass))
		})
	}
}

func TestReadPass_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadPass(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestReadPasses_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WritePass(ctx, createTestPass("c", 2)))
	require.NoError(t, s.WritePass(ctx, createTestPass("b", 1)))
	require.NoError(t, s.WritePass(ctx, createTestPass("a", 2)))

	passes, err := s.ReadPasses(ctx)
	require.NoError(t, err)
	require.Len(t, passes, 3)
	assert.Equal(t, "b", passes[0].ID)
	assert.Equal(t, "a", passes[1].ID, "ties broken by id")
	assert.Equal(t, "c", passes[2].ID)
}

func TestReadPasses_Empty(t *testing.T) {
	s := createTestStore(t)

	passes, err := s.ReadPasses(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, passes)
	assert.Empty(t, passes)
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Zero(t, seq)

	require.NoError(t, s.WritePass(ctx, createTestPass("a", 7)))
	require.NoError(t, s.WritePass(ctx, createTestPass("b", 3)))

	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}

func TestWriteMutation_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WritePass(ctx, createTestPass("pass-1", 1)))

	require.NoError(t, s.WriteMutation(ctx, createTestMutation("pass-1", 1, "remove")))
	require.NoError(t, s.WriteMutation(ctx, createTestMutation("pass-1", 0, "prepend")))
	noOrigins := createTestMutation("pass-1", 2, "replace")
	noOrigins.Origins = nil
	require.NoError(t, s.WriteMutation(ctx, noOrigins))

	muts, err := s.ReadMutations(ctx, "pass-1")
	require.NoError(t, err)
	require.Len(t, muts, 3)
	assert.Equal(t, "prepend", muts[0].Kind)
	assert.Equal(t, "remove", muts[1].Kind)
	assert.Equal(t, "replace", muts[2].Kind)
	assert.Equal(t, []string{"editor-plugins/template-variables-manager-card"}, muts[0].Origins)
	assert.Equal(t, []string{}, muts[2].Origins)
	assert.Equal(t, "#a", muts[0].Target)
	assert.Equal(t, "fp-prepend", muts[0].Fingerprint)
}

func TestWriteMutation_RequiresPass(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteMutation(context.Background(), createTestMutation("ghost", 0, "remove"))
	assert.Error(t, err, "foreign key enforced")
}

func TestWriteMutation_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WritePass(ctx, createTestPass("pass-1", 1)))

	require.NoError(t, s.WriteMutation(ctx, createTestMutation("pass-1", 0, "remove")))
	require.NoError(t, s.WriteMutation(ctx, createTestMutation("pass-1", 0, "replace")))

	muts, err := s.ReadMutations(ctx, "pass-1")
	require.NoError(t, err)
	require.Len(t, muts, 1)
	assert.Equal(t, "remove", muts[0].Kind)
}

func TestReadMutations_UnknownPass(t *testing.T) {
	s := createTestStore(t)

	muts, err := s.ReadMutations(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, muts)
	assert.Empty(t, muts)
}

func TestCountMutationsByFingerprint(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WritePass(ctx, createTestPass("p1", 1)))
	require.NoError(t, s.WritePass(ctx, createTestPass("p2", 2)))

	require.NoError(t, s.WriteMutation(ctx, createTestMutation("p1", 0, "replace")))
	require.NoError(t, s.WriteMutation(ctx, createTestMutation("p2", 0, "replace")))
	require.NoError(t, s.WriteMutation(ctx, createTestMutation("p2", 1, "remove")))

	n, err := s.CountMutationsByFingerprint(ctx, "fp-replace")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMarshalOrigins(t *testing.T) {
	out, err := marshalOrigins([]string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, `["b","a"]`, out, "order is preserved")

	out, err = marshalOrigins(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	back, err := unmarshalOrigins(`["x"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, back)

	_, err = unmarshalOrigins(`{`)
	assert.Error(t, err)
}
