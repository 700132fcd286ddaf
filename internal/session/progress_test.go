package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Christina1281995/tema-emotions/internal/models"
	"github.com/Christina1281995/tema-emotions/internal/repository"
)

type fakeResultRepo struct {
	records []*models.LabelRecord
	maxErr  error
}

func (f *fakeResultRepo) Insert(_ context.Context, rec *models.LabelRecord) error {
	for _, existing := range f.records {
		if existing.Author == rec.Author && existing.RowIndex == rec.RowIndex {
			return repository.ErrDuplicateRow
		}
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeResultRepo) MaxRowIndex(_ context.Context, author string) (int, bool, error) {
	if f.maxErr != nil {
		return 0, false, f.maxErr
	}
	max, found := 0, false
	for _, rec := range f.records {
		if rec.Author != author {
			continue
		}
		if !found || rec.RowIndex > max {
			max = rec.RowIndex
			found = true
		}
	}
	return max, found, nil
}

func (f *fakeResultRepo) ListByAuthor(_ context.Context, author string) ([]*models.LabelRecord, error) {
	var out []*models.LabelRecord
	for _, rec := range f.records {
		if rec.Author == author {
			out = append(out, rec)
		}
	}
	return out, nil
}

func TestResume_NewUserStartsAtZero(t *testing.T) {
	repo := &fakeResultRepo{}

	p, err := Resume(context.Background(), repo, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Current())
	assert.Equal(t, "alice", p.Author())
	assert.Equal(t, models.NeutralFormDefaults(), p.FormDefaults())
}

func TestResume_ReturnsOnePastLastLabeledRow(t *testing.T) {
	tests := []struct {
		name     string
		labeled  []int
		expected int
	}{
		{name: "single record", labeled: []int{0}, expected: 1},
		{name: "sequential history", labeled: []int{0, 1, 2, 3}, expected: 4},
		{name: "unordered history", labeled: []int{2, 0, 1}, expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeResultRepo{}
			for _, idx := range tt.labeled {
				repo.records = append(repo.records, &models.LabelRecord{Author: "alice", RowIndex: idx})
			}

			p, err := Resume(context.Background(), repo, "alice")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.Current())
		})
	}
}

func TestResume_IgnoresOtherAuthors(t *testing.T) {
	repo := &fakeResultRepo{records: []*models.LabelRecord{
		{Author: "bob", RowIndex: 7},
	}}

	p, err := Resume(context.Background(), repo, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Current())
}

func TestResume_StorageFailureDoesNotDefaultToZero(t *testing.T) {
	repo := &fakeResultRepo{maxErr: errors.New("connection refused")}

	p, err := Resume(context.Background(), repo, "alice")
	require.Error(t, err)
	assert.Nil(t, p, "a tracker must not be produced when history is unreadable")
}

func TestAdvance_IncrementsByExactlyOne(t *testing.T) {
	repo := &fakeResultRepo{}
	p, err := Resume(context.Background(), repo, "alice")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		before := p.Current()
		defaults := p.Advance()
		assert.Equal(t, before+1, p.Current())
		assert.Equal(t, models.NeutralFormDefaults(), defaults)
	}
}

func TestIsComplete_AgainstLiveDatasetLength(t *testing.T) {
	repo := &fakeResultRepo{records: []*models.LabelRecord{
		{Author: "alice", RowIndex: 0},
		{Author: "alice", RowIndex: 1},
		{Author: "alice", RowIndex: 2},
	}}

	p, err := Resume(context.Background(), repo, "alice")
	require.NoError(t, err)
	require.Equal(t, 3, p.Current())

	assert.True(t, p.IsComplete(3), "all three rows labeled")
	assert.True(t, p.IsComplete(2), "current past a shrunken dataset is still complete")

	// Dataset grew since the last session: labeling resumes.
	assert.False(t, p.IsComplete(4))
}

func TestIsComplete_EmptyDataset(t *testing.T) {
	repo := &fakeResultRepo{}
	p, err := Resume(context.Background(), repo, "alice")
	require.NoError(t, err)

	assert.True(t, p.IsComplete(0))
}
