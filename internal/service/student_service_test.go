package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/pkg/config"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
)

func newStudentService(t *testing.T, ds *models.Dataset) (*StudentService, *memoryDataset, *metricsStub) {
	t.Helper()
	repo := newMemoryDataset(t, ds)
	metrics := &metricsStub{}
	svc := NewStudentService(repo, NewClassificationPolicy(nil), config.LedgerConfig{OverpaymentPolicy: config.OverpaymentReject}, metrics, nil, zap.NewNop())
	return svc, repo, metrics
}

func TestStudentServiceRegisterClassifiesAndNormalizes(t *testing.T) {
	svc, repo, metrics := newStudentService(t, nil)

	view, err := svc.Register(context.Background(), koffiRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "KOFFI", view.Surname)
	assert.Equal(t, "Jean", view.GivenNames)
	assert.Equal(t, "CM2", view.ClassLabel)
	assert.Equal(t, "0700112233", view.GuardianPhone)
	assert.Equal(t, models.GroupPrimary, view.Group)
	assert.Equal(t, models.Balance{Total: 50000, Paid: 0, Remaining: 50000}, view.Balance)
	assert.False(t, view.EnrolledAt.IsZero())
	assert.Empty(t, view.Payments)
	assert.Empty(t, view.Grades)

	ds := repo.snapshot(t)
	require.Len(t, ds.Primary, 1)
	assert.Empty(t, ds.Secondary)
	assert.Equal(t, view.ID, ds.Primary[0].ID)
	assert.Equal(t, []models.Group{models.GroupPrimary}, metrics.registrations)
}

func TestStudentServiceRegisterSecondary(t *testing.T) {
	svc, repo, _ := newStudentService(t, nil)
	req := koffiRequest()
	req.ClassLabel = "6eme"

	view, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.GroupSecondary, view.Group)
	assert.Len(t, repo.snapshot(t).Secondary, 1)
}

func TestStudentServiceRegisterValidation(t *testing.T) {
	svc, repo, _ := newStudentService(t, nil)

	missing := koffiRequest()
	missing.Surname = ""
	_, err := svc.Register(context.Background(), missing)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	noFee := koffiRequest()
	noFee.TuitionFee = nil
	_, err = svc.Register(context.Background(), noFee)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	badDate := koffiRequest()
	badDate.BirthDate = "02/03/2014"
	_, err = svc.Register(context.Background(), badDate)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	noDigits := koffiRequest()
	noDigits.GuardianPhone = "n/a"
	_, err = svc.Register(context.Background(), noDigits)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Equal(t, 0, repo.saves)
}

func TestStudentServiceRejectsBlankRequiredFields(t *testing.T) {
	ds := models.NewDataset()
	ds.Append(models.GroupPrimary, seededStudent("p1", "KOFFI", "CM2", 50000))
	svc, repo, _ := newStudentService(t, ds)

	blankName := koffiRequest()
	blankName.Surname = "   "
	_, err := svc.Register(context.Background(), blankName)
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, err.Error(), "nom")

	blankClass := koffiRequest()
	blankClass.ClassLabel = " \t "
	_, err = svc.Register(context.Background(), blankClass)
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, err.Error(), "classe")

	_, err = svc.Update(context.Background(), "p1", dto.UpdateStudentRequest{
		Surname: "KOFFI", GivenNames: "  ", ClassLabel: "CM2", Sex: "M",
		BirthDate: "2014-03-02", GuardianPhone: "0700000000", TuitionFee: fee(50000),
	})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, err.Error(), "prenoms")

	assert.Equal(t, 0, repo.saves)
	assert.Equal(t, "Test", repo.snapshot(t).Primary[0].GivenNames)
}

func TestStudentServiceGet(t *testing.T) {
	ds := models.NewDataset()
	ds.Append(models.GroupSecondary, seededStudent("s1", "YAO", "5EME", 80000, 30000))
	svc, _, _ := newStudentService(t, ds)

	view, err := svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.GroupSecondary, view.Group)
	assert.Equal(t, int64(50000), view.Balance.Remaining)

	_, err = svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceUpdateMovesBetweenGroups(t *testing.T) {
	ds := models.NewDataset()
	ds.Append(models.GroupPrimary, seededStudent("p1", "KOFFI", "CM2", 50000, 20000))
	ds.Append(models.GroupPrimary, seededStudent("p2", "AKA", "CM1", 50000))
	ds.Append(models.GroupSecondary, seededStudent("s1", "YAO", "6EME", 80000))
	svc, repo, _ := newStudentService(t, ds)

	view, err := svc.Update(context.Background(), "p1", dto.UpdateStudentRequest{
		Surname:       "koffi",
		GivenNames:    "jean marc",
		ClassLabel:    "6eme",
		Sex:           "m",
		BirthDate:     "2013-05-04",
		GuardianPhone: "+225 07 00 00 00",
		TuitionFee:    fee(90000),
	})
	require.NoError(t, err)
	assert.Equal(t, models.GroupSecondary, view.Group)
	assert.Equal(t, "Jean Marc", view.GivenNames)
	assert.Equal(t, models.Balance{Total: 90000, Paid: 20000, Remaining: 70000}, view.Balance)

	stored := repo.snapshot(t)
	require.Len(t, stored.Primary, 1)
	assert.Equal(t, "p2", stored.Primary[0].ID)
	require.Len(t, stored.Secondary, 2)
	assert.Equal(t, "p1", stored.Secondary[1].ID, "moved student is appended at the end")
	assert.Len(t, stored.Secondary[1].Payments, 1, "payments travel with the student")
	assert.Equal(t, ds.Primary[0].EnrolledAt, stored.Secondary[1].EnrolledAt)
}

func TestStudentServiceUpdateRejectsFeeBelowPaid(t *testing.T) {
	ds := models.NewDataset()
	ds.Append(models.GroupPrimary, seededStudent("p1", "KOFFI", "CM2", 50000, 30000))
	svc, repo, _ := newStudentService(t, ds)

	_, err := svc.Update(context.Background(), "p1", dto.UpdateStudentRequest{
		Surname: "KOFFI", GivenNames: "Jean", ClassLabel: "CM2", Sex: "M",
		BirthDate: "2014-03-02", GuardianPhone: "0700000000", TuitionFee: fee(20000),
	})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, 0, repo.saves)
}

func TestStudentServiceUpdateUnknown(t *testing.T) {
	svc, _, _ := newStudentService(t, nil)
	_, err := svc.Update(context.Background(), "ghost", dto.UpdateStudentRequest{
		Surname: "A", GivenNames: "B", ClassLabel: "CM2", Sex: "F",
		BirthDate: "2014-03-02", GuardianPhone: "0700000000", TuitionFee: fee(1),
	})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceDelete(t *testing.T) {
	ds := models.NewDataset()
	ds.Append(models.GroupPrimary, seededStudent("p1", "KOFFI", "CM2", 50000, 20000))
	svc, repo, _ := newStudentService(t, ds)

	_, err := svc.Delete(context.Background(), "p1", models.Actor{Name: "x"})
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	removed, err := svc.Delete(context.Background(), "p1", authorized)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, repo.snapshot(t).Len())
	assert.Equal(t, 1, repo.saves)

	removed, err = svc.Delete(context.Background(), "p1", authorized)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, repo.saves, "unknown id must not trigger a save")
}

func TestStudentServiceListFiltersAndPaginates(t *testing.T) {
	ds := models.NewDataset()
	ds.Append(models.GroupPrimary, seededStudent("p1", "KOFFI", "CM2", 50000))
	ds.Append(models.GroupPrimary, seededStudent("p2", "KONAN", "CM1", 50000))
	ds.Append(models.GroupSecondary, seededStudent("s1", "YAO", "6EME", 80000))
	svc, _, _ := newStudentService(t, ds)

	all, page, err := svc.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, "p1", all[0].ID)

	found, _, err := svc.List(context.Background(), models.StudentFilter{Search: "ko"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	secondary, _, err := svc.List(context.Background(), models.StudentFilter{Group: models.GroupSecondary})
	require.NoError(t, err)
	require.Len(t, secondary, 1)
	assert.Equal(t, "s1", secondary[0].ID)

	byClass, _, err := svc.List(context.Background(), models.StudentFilter{ClassLabel: "cm1"})
	require.NoError(t, err)
	require.Len(t, byClass, 1)
	assert.Equal(t, "p2", byClass[0].ID)

	second, page, err := svc.List(context.Background(), models.StudentFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "s1", second[0].ID)
	assert.Equal(t, 2, page.PageSize)

	beyond, _, err := svc.List(context.Background(), models.StudentFilter{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestStudentServiceListByClass(t *testing.T) {
	ds := models.NewDataset()
	ds.Append(models.GroupPrimary, seededStudent("p1", "KOFFI", "CM2", 50000))
	ds.Append(models.GroupPrimary, seededStudent("p2", "KONAN", "CM1", 50000))
	ds.Append(models.GroupPrimary, seededStudent("p3", "AKA", "CM2", 50000))
	svc, _, _ := newStudentService(t, ds)

	rosters, err := svc.ListByClass(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, rosters, 2)
	assert.Equal(t, "CM1", rosters[0].ClassLabel)
	assert.Equal(t, "CM2", rosters[1].ClassLabel)
	require.Len(t, rosters[1].Students, 2)
	assert.Equal(t, "p1", rosters[1].Students[0].ID)
	assert.Equal(t, "p3", rosters[1].Students[1].ID)
}
