package dto

// RegisterStudentRequest carries the fields of a new enrollment.
type RegisterStudentRequest struct {
	Surname       string `json:"nom" validate:"required,max=80"`
	GivenNames    string `json:"prenoms" validate:"required,max=120"`
	ClassLabel    string `json:"classe" validate:"required,max=20"`
	Sex           string `json:"sexe" validate:"required,oneof=M F m f"`
	BirthDate     string `json:"date_naissance" validate:"required,datetime=2006-01-02"`
	GuardianName  string `json:"tuteur" validate:"omitempty,max=120"`
	GuardianPhone string `json:"telephone" validate:"required,max=30"`
	RegisteredBy  string `json:"enregistre_par" validate:"omitempty,max=80"`
	TuitionFee    *int64 `json:"scolarite" validate:"required,min=0"`
}

// UpdateStudentRequest replaces the editable fields of a student. Grades and
// payments are never touched by an update.
type UpdateStudentRequest struct {
	Surname       string `json:"nom" validate:"required,max=80"`
	GivenNames    string `json:"prenoms" validate:"required,max=120"`
	ClassLabel    string `json:"classe" validate:"required,max=20"`
	Sex           string `json:"sexe" validate:"required,oneof=M F m f"`
	BirthDate     string `json:"date_naissance" validate:"required,datetime=2006-01-02"`
	GuardianName  string `json:"tuteur" validate:"omitempty,max=120"`
	GuardianPhone string `json:"telephone" validate:"required,max=30"`
	TuitionFee    *int64 `json:"scolarite" validate:"required,min=0"`
}
