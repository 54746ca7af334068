package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/pkg/config"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
)

func value(v float64) *float64 { return &v }

func newGradeService(t *testing.T, students ...models.Student) (*GradeService, *memoryDataset) {
	t.Helper()
	ds := models.NewDataset()
	for _, st := range students {
		ds.Append(NewClassificationPolicy(nil).Classify(st.ClassLabel), st)
	}
	repo := newMemoryDataset(t, ds)
	return NewGradeService(repo, config.GradesConfig{Min: 0, Max: 20}, nil, nil), repo
}

func TestGradeServiceSetGradeOverwritesSameKey(t *testing.T) {
	svc, repo := newGradeService(t, seededStudent("s1", "YAO", "6EME", 80000))

	_, err := svc.SetGrade(context.Background(), "s1", dto.SetGradeRequest{Subject: "Maths", Term: "T1", Value: value(12)}, authorized)
	require.NoError(t, err)
	grade, err := svc.SetGrade(context.Background(), "s1", dto.SetGradeRequest{Subject: "maths", Term: "t1", Value: value(15), Coefficient: 3}, authorized)
	require.NoError(t, err)
	assert.Equal(t, 15.0, grade.Value)
	assert.Equal(t, "secretariat", grade.Recorder)

	_, err = svc.SetGrade(context.Background(), "s1", dto.SetGradeRequest{Subject: "Maths", Term: "T2", Value: value(9)}, authorized)
	require.NoError(t, err)

	stored := repo.snapshot(t).Secondary[0]
	require.Len(t, stored.Grades, 2)
	assert.Equal(t, 15.0, stored.Grades[0].Value)
	assert.Equal(t, 3.0, stored.Grades[0].Coefficient)
	assert.Equal(t, 1.0, stored.Grades[1].Coefficient)
}

func TestGradeServiceSetGradeErrors(t *testing.T) {
	svc, repo := newGradeService(t, seededStudent("s1", "YAO", "6EME", 80000))

	_, err := svc.SetGrade(context.Background(), "s1", dto.SetGradeRequest{Subject: "Maths", Value: value(12)}, models.Actor{})
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.SetGrade(context.Background(), "s1", dto.SetGradeRequest{Subject: "Maths", Value: value(21)}, authorized)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.SetGrade(context.Background(), "s1", dto.SetGradeRequest{Subject: "Maths", Value: value(-1)}, authorized)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.SetGrade(context.Background(), "s1", dto.SetGradeRequest{Subject: "Maths"}, authorized)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.SetGrade(context.Background(), "ghost", dto.SetGradeRequest{Subject: "Maths", Value: value(10)}, authorized)
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	assert.Equal(t, 0, repo.saves)
}

func TestGradeServiceBulkSetGrades(t *testing.T) {
	svc, repo := newGradeService(t,
		seededStudent("a", "AKA", "6EME", 80000),
		seededStudent("b", "BLE", "6EME", 80000),
		seededStudent("c", "COU", "5EME", 80000),
	)

	result, err := svc.BulkSetGrades(context.Background(), dto.BulkGradesRequest{
		ClassLabel: "6eme",
		Subject:    "Français",
		Entries: []dto.BulkGradeEntry{
			{StudentID: "a", Value: 11},
			{StudentID: "b", Value: 16.5},
			{StudentID: "c", Value: 10},
			{StudentID: "ghost", Value: 10},
		},
	}, authorized)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result.Applied)
	assert.Equal(t, []string{"c", "ghost"}, result.Ignored)
	assert.Equal(t, 1, repo.saves)

	stored := repo.snapshot(t).Secondary
	assert.Len(t, stored[0].Grades, 1)
	assert.Equal(t, 16.5, stored[1].Grades[0].Value)
	assert.Empty(t, stored[2].Grades)
}

// replayingDataset runs every update closure once on a discarded copy before
// the real update, the way the Redis store retries after a WATCH conflict.
type replayingDataset struct {
	*memoryDataset
}

func (r replayingDataset) Update(ctx context.Context, fn func(*models.Dataset) error) error {
	if err := r.memoryDataset.View(ctx, fn); err != nil {
		return err
	}
	return r.memoryDataset.Update(ctx, fn)
}

func TestGradeServiceBulkSetGradesSurvivesReplay(t *testing.T) {
	ds := models.NewDataset()
	ds.Append(models.GroupSecondary, seededStudent("a", "AKA", "6EME", 80000))
	ds.Append(models.GroupSecondary, seededStudent("c", "COU", "5EME", 80000))
	repo := newMemoryDataset(t, ds)
	svc := NewGradeService(replayingDataset{repo}, config.GradesConfig{Min: 0, Max: 20}, nil, nil)

	result, err := svc.BulkSetGrades(context.Background(), dto.BulkGradesRequest{
		ClassLabel: "6EME",
		Subject:    "Maths",
		Entries: []dto.BulkGradeEntry{
			{StudentID: "a", Value: 12},
			{StudentID: "c", Value: 9},
		},
	}, authorized)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, result.Applied)
	assert.Equal(t, []string{"c"}, result.Ignored)
	assert.Equal(t, 1, repo.saves)
}

func TestGradeServiceBulkRejectsWholeBatchOnInvalidValue(t *testing.T) {
	svc, repo := newGradeService(t, seededStudent("a", "AKA", "6EME", 80000))

	_, err := svc.BulkSetGrades(context.Background(), dto.BulkGradesRequest{
		ClassLabel: "6EME",
		Subject:    "Maths",
		Entries: []dto.BulkGradeEntry{
			{StudentID: "a", Value: 12},
			{StudentID: "a", Value: 25},
		},
	}, authorized)
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, 0, repo.saves)
}

func TestGradeServiceReportCard(t *testing.T) {
	svc, _ := newGradeService(t, seededStudent("s1", "YAO", "6EME", 80000))
	ctx := context.Background()
	for _, req := range []dto.SetGradeRequest{
		{Subject: "Maths", Term: "T1", Value: value(14), Coefficient: 3},
		{Subject: "Anglais", Term: "T1", Value: value(10), Coefficient: 1},
		{Subject: "Maths", Term: "T2", Value: value(8), Coefficient: 3},
	} {
		_, err := svc.SetGrade(ctx, "s1", req, authorized)
		require.NoError(t, err)
	}

	card, err := svc.ReportCard(ctx, "s1", "t1")
	require.NoError(t, err)
	require.Len(t, card.Grades, 2)
	assert.Equal(t, "Anglais", card.Grades[0].Subject)
	require.NotNil(t, card.WeightedAverage)
	assert.Equal(t, 13.0, *card.WeightedAverage)

	all, err := svc.ReportCard(ctx, "s1", "")
	require.NoError(t, err)
	assert.Len(t, all.Grades, 3)

	empty, err := svc.ReportCard(ctx, "s1", "T3")
	require.NoError(t, err)
	assert.Empty(t, empty.Grades)
	assert.Nil(t, empty.WeightedAverage)
}
