package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/middleware"
	"github.com/noah-isme/scolarite-api/internal/models"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error.Code
}

type studentServiceMock struct {
	registered  dto.RegisterStudentRequest
	filter      models.StudentFilter
	deleteActor models.Actor
	removed     bool
	err         error
}

func (m *studentServiceMock) Register(ctx context.Context, req dto.RegisterStudentRequest) (*models.StudentView, error) {
	m.registered = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.StudentView{Student: models.Student{ID: "new", Surname: "KOFFI"}, Group: models.GroupPrimary}, nil
}

func (m *studentServiceMock) Get(ctx context.Context, id string) (*models.StudentView, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.StudentView{Student: models.Student{ID: id}}, nil
}

func (m *studentServiceMock) Update(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.StudentView, error) {
	return &models.StudentView{Student: models.Student{ID: id, ClassLabel: req.ClassLabel}}, m.err
}

func (m *studentServiceMock) Delete(ctx context.Context, id string, actor models.Actor) (bool, error) {
	m.deleteActor = actor
	return m.removed, m.err
}

func (m *studentServiceMock) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentView, *models.Pagination, error) {
	m.filter = filter
	return []models.StudentView{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, m.err
}

func (m *studentServiceMock) ListByClass(ctx context.Context, filter models.StudentFilter) ([]models.ClassRoster, error) {
	m.filter = filter
	return []models.ClassRoster{}, m.err
}

func TestStudentHandlerRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &studentServiceMock{}
	h := NewStudentHandler(svc)

	payload := []byte(`{"nom":"Koffi","prenoms":"Jean","classe":"CM2","sexe":"M","date_naissance":"2014-03-02","telephone":"0700000000","scolarite":50000}`)
	c, w := newGinContext(http.MethodPost, "/students", payload)
	h.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.registered.TuitionFee)
	assert.Equal(t, int64(50000), *svc.registered.TuitionFee)
	assert.Contains(t, w.Body.String(), `"groupe":"primaire"`)
}

func TestStudentHandlerRegisterBadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewStudentHandler(&studentServiceMock{})

	c, w := newGinContext(http.MethodPost, "/students", []byte(`{"nom":`))
	h.Register(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w))
}

func TestStudentHandlerListParsesFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &studentServiceMock{}
	h := NewStudentHandler(svc)

	c, w := newGinContext(http.MethodGet, "/students?search=ko&classe=cm2&groupe=PRIMAIRE&page=2&limit=5", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StudentFilter{Search: "ko", ClassLabel: "cm2", Group: models.GroupPrimary, Page: 2, PageSize: 5}, svc.filter)

	c, w = newGinContext(http.MethodGet, "/students?groupe=lycee", nil)
	h.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewStudentHandler(&studentServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "student x not found")})

	c, w := newGinContext(http.MethodGet, "/students/x", nil)
	c.Params = gin.Params{{Key: "id", Value: "x"}}
	h.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &studentServiceMock{removed: true}
	h := NewStudentHandler(svc)

	c, _ := newGinContext(http.MethodDelete, "/students/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Set(middleware.ContextClaimsKey, &models.JWTClaims{Operator: "direction", Scopes: []models.Scope{models.ScopeDeletions}})
	h.Delete(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, models.Actor{Name: "direction", Authorized: true}, svc.deleteActor)

	svc.removed = false
	c, w := newGinContext(http.MethodDelete, "/students/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.Delete(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, svc.deleteActor.Authorized)
}

type paymentServiceMock struct {
	actor models.Actor
	req   dto.RecordPaymentRequest
	err   error
	pdf   []byte
	index int
}

func (m *paymentServiceMock) RecordPayment(ctx context.Context, studentID string, req dto.RecordPaymentRequest, actor models.Actor) (*models.PaymentReceipt, error) {
	m.actor = actor
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.PaymentReceipt{StudentID: studentID, Index: 1, Balance: models.Balance{Total: 50000, Paid: req.Amount, Remaining: 50000 - req.Amount}}, nil
}

func (m *paymentServiceMock) Balance(ctx context.Context, studentID string) (*models.Balance, error) {
	return &models.Balance{Total: 50000, Paid: 20000, Remaining: 30000}, m.err
}

func (m *paymentServiceMock) History(ctx context.Context, studentID string) ([]models.Payment, error) {
	return []models.Payment{{Amount: 20000}}, m.err
}

func (m *paymentServiceMock) Receipt(ctx context.Context, studentID string, index int) ([]byte, error) {
	m.index = index
	return m.pdf, m.err
}

func TestPaymentHandlerRecord(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &paymentServiceMock{}
	h := NewPaymentHandler(svc)

	c, w := newGinContext(http.MethodPost, "/students/k1/payments", []byte(`{"montant":20000,"mode":"especes"}`))
	c.Params = gin.Params{{Key: "id", Value: "k1"}}
	c.Set(middleware.ContextClaimsKey, &models.JWTClaims{Operator: "caisse", Scopes: []models.Scope{models.ScopePayments}})
	h.Record(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, svc.actor.Authorized)
	assert.Equal(t, int64(20000), svc.req.Amount)
	assert.Contains(t, w.Body.String(), `"reste":30000`)
}

func TestPaymentHandlerRecordUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewPaymentHandler(&paymentServiceMock{err: appErrors.Clone(appErrors.ErrUnauthorized, "locked")})

	c, w := newGinContext(http.MethodPost, "/students/k1/payments", []byte(`{"montant":20000}`))
	c.Params = gin.Params{{Key: "id", Value: "k1"}}
	h.Record(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentHandlerReceipt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &paymentServiceMock{pdf: []byte("%PDF-1.3")}
	h := NewPaymentHandler(svc)

	c, w := newGinContext(http.MethodGet, "/students/k1/payments/2/receipt", nil)
	c.Params = gin.Params{{Key: "id", Value: "k1"}, {Key: "index", Value: "2"}}
	h.Receipt(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.index)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "recu-k1-2.pdf")

	c, w = newGinContext(http.MethodGet, "/students/k1/payments/zero/receipt", nil)
	c.Params = gin.Params{{Key: "id", Value: "k1"}, {Key: "index", Value: "zero"}}
	h.Receipt(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

type gradeServiceMock struct {
	actor models.Actor
	term  string
}

func (m *gradeServiceMock) SetGrade(ctx context.Context, studentID string, req dto.SetGradeRequest, actor models.Actor) (*models.Grade, error) {
	m.actor = actor
	return &models.Grade{Subject: req.Subject, Value: *req.Value}, nil
}

func (m *gradeServiceMock) BulkSetGrades(ctx context.Context, req dto.BulkGradesRequest, actor models.Actor) (*models.BulkGradesResult, error) {
	m.actor = actor
	return &models.BulkGradesResult{Applied: []string{"a"}}, nil
}

func (m *gradeServiceMock) ReportCard(ctx context.Context, studentID, term string) (*models.ReportCard, error) {
	m.term = term
	return &models.ReportCard{StudentID: studentID, Term: term}, nil
}

func TestGradeHandlerUsesGradesScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &gradeServiceMock{}
	h := NewGradeHandler(svc)

	c, w := newGinContext(http.MethodPut, "/students/s1/grades", []byte(`{"matiere":"Maths","valeur":12}`))
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	c.Set(middleware.ContextClaimsKey, &models.JWTClaims{Scopes: []models.Scope{models.ScopePayments}})
	h.Set(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, svc.actor.Authorized, "a payments token does not unlock grades")

	c, w = newGinContext(http.MethodPost, "/grades/bulk", []byte(`{"classe":"6EME","matiere":"Maths","notes":[{"student_id":"a","valeur":10}]}`))
	c.Set(middleware.ContextClaimsKey, &models.JWTClaims{Scopes: []models.Scope{models.ScopeGrades}})
	h.Bulk(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.actor.Authorized)

	c, w = newGinContext(http.MethodGet, "/students/s1/report-card?trimestre=T2", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	h.ReportCard(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "T2", svc.term)
}

type spreadsheetServiceMock struct {
	filename string
	content  []byte
	class    string
	err      error
}

func (m *spreadsheetServiceMock) Export(ctx context.Context) ([]byte, error) {
	return []byte("xlsx"), m.err
}

func (m *spreadsheetServiceMock) ExportCSV(ctx context.Context) ([]byte, error) {
	return []byte("csv"), m.err
}

func (m *spreadsheetServiceMock) RosterPDF(ctx context.Context, classLabel string) ([]byte, error) {
	m.class = classLabel
	return []byte("%PDF"), m.err
}

func (m *spreadsheetServiceMock) Import(ctx context.Context, filename string, r io.Reader, actor models.Actor) (*models.ImportResult, error) {
	m.filename = filename
	m.content, _ = io.ReadAll(r)
	if m.err != nil {
		return nil, m.err
	}
	return &models.ImportResult{Imported: []string{"a", "b"}}, nil
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestSpreadsheetHandlerImport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &spreadsheetServiceMock{}
	h := NewSpreadsheetHandler(svc, 1<<20)

	body, contentType := multipartBody(t, "file", "eleves.xlsx", []byte("workbook"))
	c, w := newGinContext(http.MethodPost, "/import", nil)
	c.Request, _ = http.NewRequest(http.MethodPost, "/import", body)
	c.Request.Header.Set("Content-Type", contentType)
	h.Import(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "eleves.xlsx", svc.filename)
	assert.Equal(t, []byte("workbook"), svc.content)
	assert.Contains(t, w.Body.String(), `"imported":2`)
}

func TestSpreadsheetHandlerImportErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	body, contentType := multipartBody(t, "other", "eleves.xlsx", []byte("workbook"))
	c, w := newGinContext(http.MethodPost, "/import", nil)
	c.Request, _ = http.NewRequest(http.MethodPost, "/import", body)
	c.Request.Header.Set("Content-Type", contentType)
	NewSpreadsheetHandler(&spreadsheetServiceMock{}, 1<<20).Import(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body, contentType = multipartBody(t, "file", "eleves.xlsx", []byte("workbook"))
	c, w = newGinContext(http.MethodPost, "/import", nil)
	c.Request, _ = http.NewRequest(http.MethodPost, "/import", body)
	c.Request.Header.Set("Content-Type", contentType)
	NewSpreadsheetHandler(&spreadsheetServiceMock{err: appErrors.Clone(appErrors.ErrImport, "missing column Nom")}, 1<<20).Import(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "IMPORT_ERROR", decodeError(t, w))
}

func TestSpreadsheetHandlerExports(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &spreadsheetServiceMock{}
	h := NewSpreadsheetHandler(svc, 0)

	c, w := newGinContext(http.MethodGet, "/export/xlsx", nil)
	h.ExportXLSX(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	c, w = newGinContext(http.MethodGet, "/export/csv", nil)
	h.ExportCSV(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))

	c, w = newGinContext(http.MethodGet, "/export/roster.pdf?classe=CM2", nil)
	h.RosterPDF(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CM2", svc.class)
}

type unlockerMock struct {
	req     models.UnlockRequest
	current *models.JWTClaims
	err     error
}

func (m *unlockerMock) Unlock(ctx context.Context, req models.UnlockRequest, current *models.JWTClaims) (*models.UnlockResponse, error) {
	m.req = req
	m.current = current
	if m.err != nil {
		return nil, m.err
	}
	return &models.UnlockResponse{AccessToken: "token", ExpiresIn: 60, Scope: req.Action}, nil
}

func TestAuthHandlerUnlock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &unlockerMock{}
	h := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodPost, "/auth/unlock", []byte(`{"action":"payments","password":"caisse"}`))
	c.Request.RemoteAddr = "10.1.2.3:5555"
	h.Unlock(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ScopePayments, svc.req.Action)
	assert.Equal(t, "10.1.2.3", svc.req.IP)
	assert.Contains(t, w.Body.String(), `"access_token":"token"`)

	h = NewAuthHandler(&unlockerMock{err: appErrors.Clone(appErrors.ErrUnauthorized, "incorrect password")})
	c, w = newGinContext(http.MethodPost, "/auth/unlock", []byte(`{"action":"payments","password":"nope"}`))
	h.Unlock(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
