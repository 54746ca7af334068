package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/internal/repository"
	"github.com/noah-isme/scolarite-api/pkg/config"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
	"github.com/noah-isme/scolarite-api/pkg/export"
)

// Spreadsheet column headers. Import relies on these names.
const (
	ColID           = "ID"
	ColSurname      = "Nom"
	ColGivenNames   = "Prénoms"
	ColClass        = "Classe"
	ColGroup        = "Groupe"
	ColSex          = "Sexe"
	ColBirthDate    = "Date naissance"
	ColGuardian     = "Tuteur"
	ColPhone        = "Téléphone tuteur"
	ColRegisteredBy = "Enregistré par"
	ColEnrolledAt   = "Date inscription"
	ColTuition      = "Scolarité totale"
	ColTotalPaid    = "Total payé"
	ColRemaining    = "Reste"

	gradePrefix           = "Note "
	coefPrefix            = "Coef "
	recorderPrefix        = "Enseignant "
	gradeDatePrefix       = "Date note "
	paymentPrefix         = "Paiement"
	paymentDatePrefix     = "Date paiement"
	paymentModePrefix     = "Mode paiement"
	paymentReceiverPrefix = "Reçu par"

	exportSheet     = "Eleves"
	timestampLayout = "2006-01-02 15:04:05"
)

var identityColumns = []string{
	ColID, ColSurname, ColGivenNames, ColClass, ColGroup, ColSex, ColBirthDate,
	ColGuardian, ColPhone, ColRegisteredBy, ColEnrolledAt,
}

type backupStore interface {
	Save(filename string, data []byte) (string, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// SpreadsheetService converts the dataset to and from spreadsheets.
type SpreadsheetService struct {
	repo      datasetRepository
	policy    *ClassificationPolicy
	backups   backupStore
	xlsx      *export.XLSXExporter
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
	metrics   domainMetrics
	ledger    config.LedgerConfig
	grades    config.GradesConfig
	rowPolicy string
	retention time.Duration
	now       func() time.Time
}

// SpreadsheetConfig groups the settings the bridge depends on.
type SpreadsheetConfig struct {
	Ledger          config.LedgerConfig
	Grades          config.GradesConfig
	ImportRowPolicy string
	BackupRetention time.Duration
}

// NewSpreadsheetService constructs a SpreadsheetService. backups may be nil.
func NewSpreadsheetService(repo datasetRepository, policy *ClassificationPolicy, backups backupStore, cfg SpreadsheetConfig, metrics domainMetrics, logger *zap.Logger) *SpreadsheetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = NewClassificationPolicy(nil)
	}
	if cfg.ImportRowPolicy != config.ImportRowAbort {
		cfg.ImportRowPolicy = config.ImportRowSkip
	}
	if cfg.Grades.Max <= cfg.Grades.Min {
		cfg.Grades = config.GradesConfig{Min: 0, Max: 20}
	}
	return &SpreadsheetService{
		repo:      repo,
		policy:    policy,
		backups:   backups,
		xlsx:      export.NewXLSXExporter(),
		csv:       export.NewCSVExporter(';'),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
		metrics:   metricsOrNoop(metrics),
		ledger:    cfg.Ledger,
		grades:    cfg.Grades,
		rowPolicy: cfg.ImportRowPolicy,
		retention: cfg.BackupRetention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Export renders every student as one xlsx row, primary group first.
func (s *SpreadsheetService) Export(ctx context.Context) ([]byte, error) {
	table, err := s.table(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := s.xlsx.Render(table, exportSheet)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render workbook")
	}
	return payload, nil
}

// ExportCSV renders the same table as Export in CSV.
func (s *SpreadsheetService) ExportCSV(ctx context.Context) ([]byte, error) {
	table, err := s.table(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

// RosterPDF prints the class list (every class when classLabel is empty).
func (s *SpreadsheetService) RosterPDF(ctx context.Context, classLabel string) ([]byte, error) {
	class := NormalizeClassLabel(classLabel)
	headers := []string{"N°", ColSurname, ColGivenNames, ColClass, ColSex, ColBirthDate, ColPhone, ColTotalPaid, ColRemaining}
	table := export.Dataset{Headers: headers}

	err := s.repo.View(ctx, func(ds *models.Dataset) error {
		ds.Each(func(_ models.Group, st *models.Student) {
			if class != "" && NormalizeClassLabel(st.ClassLabel) != class {
				return
			}
			balance := computeBalance(*st, s.ledger.OverpaymentPolicy)
			table.Rows = append(table.Rows, map[string]string{
				"N°":          strconv.Itoa(len(table.Rows) + 1),
				ColSurname:    st.Surname,
				ColGivenNames: st.GivenNames,
				ColClass:      st.ClassLabel,
				ColSex:        st.Sex,
				ColBirthDate:  st.BirthDate,
				ColPhone:      st.GuardianPhone,
				ColTotalPaid:  strconv.FormatInt(balance.Paid, 10),
				ColRemaining:  strconv.FormatInt(balance.Remaining, 10),
			})
		})
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to load students")
	}
	if class != "" && len(table.Rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no student in class "+class)
	}

	title := "Liste des élèves"
	if class != "" {
		title += " - " + class
	}
	payload, err := s.pdf.Render(table, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	return payload, nil
}

type gradeKey struct {
	subject string
	term    string
}

func (k gradeKey) suffix() string {
	if k.term == "" {
		return k.subject
	}
	return k.subject + " [" + k.term + "]"
}

func (k gradeKey) id() string {
	return strings.ToLower(k.subject) + "\x00" + strings.ToLower(k.term)
}

func (s *SpreadsheetService) table(ctx context.Context) (export.Dataset, error) {
	var (
		students    []models.Student
		groups      []models.Group
		keys        = map[string]gradeKey{}
		maxPayments int
	)
	err := s.repo.View(ctx, func(ds *models.Dataset) error {
		ds.Each(func(g models.Group, st *models.Student) {
			students = append(students, *st)
			groups = append(groups, g)
			for _, grade := range st.Grades {
				k := gradeKey{subject: collapseSpaces(grade.Subject), term: collapseSpaces(grade.Term)}
				if _, seen := keys[k.id()]; !seen {
					keys[k.id()] = k
				}
			}
			if n := len(st.Payments); n > maxPayments {
				maxPayments = n
			}
		})
		return nil
	})
	if err != nil {
		return export.Dataset{}, storeError(err, "failed to load students")
	}

	sortedKeys := make([]gradeKey, 0, len(keys))
	for _, k := range keys {
		sortedKeys = append(sortedKeys, k)
	}
	sort.Slice(sortedKeys, func(i, j int) bool { return sortedKeys[i].id() < sortedKeys[j].id() })

	headers := append([]string{}, identityColumns...)
	headers = append(headers, ColTuition)
	numeric := []string{ColTuition, ColTotalPaid, ColRemaining}
	for _, k := range sortedKeys {
		headers = append(headers, gradePrefix+k.suffix(), coefPrefix+k.suffix(), recorderPrefix+k.suffix(), gradeDatePrefix+k.suffix())
		numeric = append(numeric, gradePrefix+k.suffix(), coefPrefix+k.suffix())
	}
	for i := 1; i <= maxPayments; i++ {
		headers = append(headers,
			fmt.Sprintf("%s%d", paymentPrefix, i),
			fmt.Sprintf("%s%d", paymentDatePrefix, i),
			fmt.Sprintf("%s%d", paymentModePrefix, i),
			fmt.Sprintf("%s%d", paymentReceiverPrefix, i),
		)
		numeric = append(numeric, fmt.Sprintf("%s%d", paymentPrefix, i))
	}
	headers = append(headers, ColTotalPaid, ColRemaining)

	table := export.Dataset{
		Headers:        headers,
		Rows:           make([]map[string]string, 0, len(students)),
		NumericColumns: numeric,
	}
	for i, st := range students {
		balance := computeBalance(st, s.ledger.OverpaymentPolicy)
		row := map[string]string{
			ColID:           st.ID,
			ColSurname:      st.Surname,
			ColGivenNames:   st.GivenNames,
			ColClass:        st.ClassLabel,
			ColGroup:        string(groups[i]),
			ColSex:          st.Sex,
			ColBirthDate:    st.BirthDate,
			ColGuardian:     st.GuardianName,
			ColPhone:        st.GuardianPhone,
			ColRegisteredBy: st.RegisteredBy,
			ColEnrolledAt:   formatTimestamp(st.EnrolledAt),
			ColTuition:      strconv.FormatInt(st.TuitionFee, 10),
			ColTotalPaid:    strconv.FormatInt(balance.Paid, 10),
			ColRemaining:    strconv.FormatInt(balance.Remaining, 10),
		}
		for _, k := range sortedKeys {
			idx := st.FindGrade(k.subject, k.term)
			if idx < 0 {
				continue
			}
			g := st.Grades[idx]
			row[gradePrefix+k.suffix()] = formatFloat(g.Value)
			row[coefPrefix+k.suffix()] = formatFloat(g.Coefficient)
			row[recorderPrefix+k.suffix()] = g.Recorder
			row[gradeDatePrefix+k.suffix()] = formatTimestamp(g.RecordedAt)
		}
		for n, p := range st.Payments {
			row[fmt.Sprintf("%s%d", paymentPrefix, n+1)] = strconv.FormatInt(p.Amount, 10)
			row[fmt.Sprintf("%s%d", paymentDatePrefix, n+1)] = formatTimestamp(p.Date)
			row[fmt.Sprintf("%s%d", paymentModePrefix, n+1)] = p.Mode
			row[fmt.Sprintf("%s%d", paymentReceiverPrefix, n+1)] = p.ReceivedBy
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Import appends one fresh student per spreadsheet row. Rows that cannot be
// read are skipped or abort the import depending on the row policy; accepted
// rows are saved in a single update after the current dataset is backed up.
func (s *SpreadsheetService) Import(ctx context.Context, filename string, r io.Reader, actor models.Actor) (*models.ImportResult, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return nil, appErrors.Clone(appErrors.ErrImport, "only .xlsx files can be imported")
	}
	sheet, lines, err := export.ReadXLSX(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrImport.Code, appErrors.ErrImport.Status, "unreadable spreadsheet")
	}
	cols := newColumnIndex(sheet.Headers)
	for _, required := range []string{ColSurname, ColGivenNames, ColClass} {
		if !cols.has(required) {
			return nil, appErrors.Clone(appErrors.ErrImport, "missing column "+required)
		}
	}

	result := &models.ImportResult{Imported: []string{}, Skipped: []models.ImportRowFailure{}}
	type pending struct {
		group   models.Group
		student models.Student
	}
	accepted := make([]pending, 0, len(sheet.Rows))
	for i, row := range sheet.Rows {
		student, reason := s.studentFromRow(cols, row, actor)
		if reason != "" {
			if s.rowPolicy == config.ImportRowAbort {
				return nil, appErrors.Clone(appErrors.ErrImport, fmt.Sprintf("row %d: %s", lines[i], reason))
			}
			s.logger.Warn("import row skipped", zap.Int("row", lines[i]), zap.String("reason", reason))
			result.Skipped = append(result.Skipped, models.ImportRowFailure{Row: lines[i], Reason: reason})
			continue
		}
		accepted = append(accepted, pending{group: s.policy.Classify(student.ClassLabel), student: student})
	}

	if len(accepted) > 0 {
		err = s.repo.Update(ctx, func(ds *models.Dataset) error {
			backup, err := s.backup(ds)
			if err != nil {
				return err
			}
			result.Backup = backup
			for _, p := range accepted {
				ds.Append(p.group, p.student)
			}
			return nil
		})
		if err != nil {
			return nil, storeError(err, "failed to save imported students")
		}
		for _, p := range accepted {
			result.Imported = append(result.Imported, p.student.ID)
		}
	}

	s.metrics.RecordImport(len(result.Imported), len(result.Skipped))
	s.logger.Info("spreadsheet imported",
		zap.String("file", filepath.Base(filename)),
		zap.Int("imported", len(result.Imported)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func (s *SpreadsheetService) backup(ds *models.Dataset) (string, error) {
	if s.backups == nil {
		return "", nil
	}
	payload, err := repository.EncodeDataset(ds)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("inscriptions-%s.yaml", s.now().Format("20060102T150405.000"))
	if _, err := s.backups.Save(name, payload); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to back up dataset before import")
	}
	if s.retention > 0 {
		if removed, err := s.backups.CleanupOlderThan(s.retention); err != nil {
			s.logger.Warn("backup cleanup failed", zap.Error(err))
		} else if len(removed) > 0 {
			s.logger.Info("old backups removed", zap.Int("count", len(removed)))
		}
	}
	return name, nil
}

func (s *SpreadsheetService) studentFromRow(cols columnIndex, row map[string]string, actor models.Actor) (models.Student, string) {
	student := models.Student{
		ID:           uuid.NewString(),
		Surname:      normalizeSurname(cols.get(row, ColSurname)),
		GivenNames:   normalizeGivenNames(cols.get(row, ColGivenNames)),
		ClassLabel:   NormalizeClassLabel(cols.get(row, ColClass)),
		GuardianName: collapseSpaces(cols.get(row, ColGuardian)),
		RegisteredBy: collapseSpaces(cols.get(row, ColRegisteredBy)),
		Grades:       []models.Grade{},
		Payments:     []models.Payment{},
	}
	switch {
	case student.Surname == "":
		return student, "nom is empty"
	case student.GivenNames == "":
		return student, "prenoms is empty"
	case student.ClassLabel == "":
		return student, "classe is empty"
	}
	if student.RegisteredBy == "" {
		student.RegisteredBy = actor.Name
	}

	if sex := strings.ToUpper(strings.TrimSpace(cols.get(row, ColSex))); sex != "" {
		switch sex[:1] {
		case "M", "G":
			student.Sex = "M"
		case "F":
			student.Sex = "F"
		default:
			return student, "sexe must be M or F"
		}
	}
	if raw := cols.get(row, ColBirthDate); raw != "" {
		birth, ok := parseDate(raw)
		if !ok {
			return student, "invalid date naissance " + raw
		}
		student.BirthDate = birth
	}
	student.GuardianPhone = digitsOnly(cols.get(row, ColPhone))

	student.EnrolledAt = s.now().Truncate(time.Second)
	if raw := cols.get(row, ColEnrolledAt); raw != "" {
		if ts, ok := parseTimestamp(raw); ok {
			student.EnrolledAt = ts
		}
	}

	if raw := cols.get(row, ColTuition); raw != "" {
		fee, ok := parseAmount(raw)
		if !ok || fee < 0 {
			return student, "invalid scolarite " + raw
		}
		student.TuitionFee = fee
	}

	for _, header := range cols.headers {
		if !strings.HasPrefix(header, gradePrefix) {
			continue
		}
		raw := strings.TrimSpace(row[header])
		if raw == "" {
			continue
		}
		suffix := strings.TrimPrefix(header, gradePrefix)
		value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil || value < s.grades.Min || value > s.grades.Max {
			return student, fmt.Sprintf("invalid %s: %s", header, raw)
		}
		subject, term := parseGradeSuffix(suffix)
		coef := 1.0
		if rawCoef := strings.TrimSpace(row[coefPrefix+suffix]); rawCoef != "" {
			if c, err := strconv.ParseFloat(strings.ReplaceAll(rawCoef, ",", "."), 64); err == nil && c > 0 {
				coef = c
			}
		}
		recordedAt := student.EnrolledAt
		if rawDate := strings.TrimSpace(row[gradeDatePrefix+suffix]); rawDate != "" {
			ts, ok := parseTimestamp(rawDate)
			if !ok {
				return student, fmt.Sprintf("invalid %s%s: %s", gradeDatePrefix, suffix, rawDate)
			}
			recordedAt = ts
		}
		upsertGrade(&student, models.Grade{
			Subject:     subject,
			Term:        term,
			Value:       value,
			Coefficient: coef,
			Recorder:    strings.TrimSpace(row[recorderPrefix+suffix]),
			RecordedAt:  recordedAt,
		})
	}

	for i := 1; ; i++ {
		amountHeader := fmt.Sprintf("%s%d", paymentPrefix, i)
		if !cols.has(amountHeader) {
			break
		}
		raw := cols.get(row, amountHeader)
		if raw == "" {
			continue
		}
		amount, ok := parseAmount(raw)
		if !ok || amount <= 0 {
			return student, fmt.Sprintf("invalid %s: %s", amountHeader, raw)
		}
		paidAt := student.EnrolledAt
		if rawDate := cols.get(row, fmt.Sprintf("%s%d", paymentDatePrefix, i)); rawDate != "" {
			ts, ok := parseTimestamp(rawDate)
			if !ok {
				return student, fmt.Sprintf("invalid %s%d: %s", paymentDatePrefix, i, rawDate)
			}
			paidAt = ts
		}
		student.Payments = append(student.Payments, models.Payment{
			Date:       paidAt,
			Amount:     amount,
			Mode:       cols.get(row, fmt.Sprintf("%s%d", paymentModePrefix, i)),
			ReceivedBy: cols.get(row, fmt.Sprintf("%s%d", paymentReceiverPrefix, i)),
		})
	}
	return student, ""
}

// columnIndex resolves headers regardless of case, accents or surrounding spaces.
type columnIndex struct {
	headers []string
	byKey   map[string]string
}

func newColumnIndex(headers []string) columnIndex {
	idx := columnIndex{headers: headers, byKey: make(map[string]string, len(headers))}
	for _, h := range headers {
		if h == "" {
			continue
		}
		if _, dup := idx.byKey[foldHeader(h)]; !dup {
			idx.byKey[foldHeader(h)] = h
		}
	}
	return idx
}

func (c columnIndex) has(name string) bool {
	_, ok := c.byKey[foldHeader(name)]
	return ok
}

func (c columnIndex) get(row map[string]string, name string) string {
	header, ok := c.byKey[foldHeader(name)]
	if !ok {
		return ""
	}
	return strings.TrimSpace(row[header])
}

func foldHeader(h string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, h)
	if err != nil {
		folded = h
	}
	return strings.ToLower(collapseSpaces(folded))
}

func parseGradeSuffix(suffix string) (string, string) {
	suffix = strings.TrimSpace(suffix)
	if strings.HasSuffix(suffix, "]") {
		if open := strings.LastIndex(suffix, " ["); open > 0 {
			return collapseSpaces(suffix[:open]), collapseSpaces(suffix[open+2 : len(suffix)-1])
		}
	}
	return collapseSpaces(suffix), ""
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "01-02-06", "2006-01-02 15:04:05"}

func parseDate(raw string) (string, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

var timestampLayouts = []string{timestampLayout, time.RFC3339, "2006-01-02 15:04", "2006-01-02", "02/01/2006 15:04", "02/01/2006"}

func parseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseAmount accepts integers written with spaces or a trailing ".0".
func parseAmount(raw string) (int64, bool) {
	cleaned := strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(raw)
	if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(cleaned, ",", "."), 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
