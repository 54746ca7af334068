package dto

// SetGradeRequest records one grade for a student.
type SetGradeRequest struct {
	Subject     string   `json:"matiere" validate:"required,max=60"`
	Term        string   `json:"trimestre" validate:"omitempty,max=20"`
	Value       *float64 `json:"valeur" validate:"required"`
	Coefficient float64  `json:"coefficient" validate:"omitempty,gt=0"`
	Recorder    string   `json:"enseignant" validate:"omitempty,max=80"`
}

// BulkGradeEntry is one student's value inside a bulk submission.
type BulkGradeEntry struct {
	StudentID string  `json:"student_id" validate:"required"`
	Value     float64 `json:"valeur"`
}

// BulkGradesRequest records the same subject for many students of a class.
type BulkGradesRequest struct {
	ClassLabel  string           `json:"classe" validate:"required"`
	Subject     string           `json:"matiere" validate:"required,max=60"`
	Term        string           `json:"trimestre" validate:"omitempty,max=20"`
	Coefficient float64          `json:"coefficient" validate:"omitempty,gt=0"`
	Recorder    string           `json:"enseignant" validate:"omitempty,max=80"`
	Entries     []BulkGradeEntry `json:"notes" validate:"required,min=1,dive"`
}
