package models

import (
	"strings"
	"time"
)

// Grade is one entry of a student's grade sheet keyed by subject and optional term.
type Grade struct {
	Subject     string    `yaml:"matiere" json:"matiere"`
	Term        string    `yaml:"trimestre,omitempty" json:"trimestre,omitempty"`
	Value       float64   `yaml:"valeur" json:"valeur"`
	Coefficient float64   `yaml:"coefficient" json:"coefficient"`
	Recorder    string    `yaml:"enseignant" json:"enseignant"`
	RecordedAt  time.Time `yaml:"date" json:"date"`
}

// Matches reports whether the grade is keyed by subject and term (case-insensitive).
func (g Grade) Matches(subject, term string) bool {
	return strings.EqualFold(strings.TrimSpace(g.Subject), strings.TrimSpace(subject)) &&
		strings.EqualFold(strings.TrimSpace(g.Term), strings.TrimSpace(term))
}

// ReportCard summarises a student's grades for one term (or all terms).
type ReportCard struct {
	StudentID       string   `json:"student_id"`
	StudentName     string   `json:"nom_complet"`
	ClassLabel      string   `json:"classe"`
	Term            string   `json:"trimestre,omitempty"`
	Grades          []Grade  `json:"notes"`
	WeightedAverage *float64 `json:"moyenne,omitempty"`
}

// BulkGradesResult reports which entries of a bulk submission were applied.
type BulkGradesResult struct {
	Applied []string `json:"appliques"`
	Ignored []string `json:"ignores,omitempty"`
}
