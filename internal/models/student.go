package models

import (
	"strings"
	"time"
)

// Group is the primary/secondary classification of a student.
type Group string

const (
	// GroupPrimary holds nursery and primary school classes.
	GroupPrimary Group = "primaire"
	// GroupSecondary holds every other class.
	GroupSecondary Group = "secondaire"
)

// Student is one enrolled learner together with its grade sheet and payment ledger.
type Student struct {
	ID            string    `yaml:"id" json:"id"`
	Surname       string    `yaml:"nom" json:"nom"`
	GivenNames    string    `yaml:"prenoms" json:"prenoms"`
	ClassLabel    string    `yaml:"classe" json:"classe"`
	Sex           string    `yaml:"sexe" json:"sexe"`
	BirthDate     string    `yaml:"date_naissance" json:"date_naissance"`
	GuardianName  string    `yaml:"tuteur,omitempty" json:"tuteur,omitempty"`
	GuardianPhone string    `yaml:"telephone" json:"telephone"`
	RegisteredBy  string    `yaml:"enregistre_par,omitempty" json:"enregistre_par,omitempty"`
	EnrolledAt    time.Time `yaml:"date_inscription" json:"date_inscription"`
	TuitionFee    int64     `yaml:"scolarite" json:"scolarite"`
	Grades        []Grade   `yaml:"notes" json:"notes"`
	Payments      []Payment `yaml:"paiements" json:"paiements"`
}

// FullName returns "SURNAME Given Names".
func (s Student) FullName() string {
	return strings.TrimSpace(s.Surname + " " + s.GivenNames)
}

// Paid sums the payment ledger.
func (s Student) Paid() int64 {
	var total int64
	for _, p := range s.Payments {
		total += p.Amount
	}
	return total
}

// FindGrade returns the index of the grade keyed by subject and term, or -1.
func (s Student) FindGrade(subject, term string) int {
	for i, g := range s.Grades {
		if g.Matches(subject, term) {
			return i
		}
	}
	return -1
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	ClassLabel string
	Group      Group
	Page       int
	PageSize   int
}

// StudentView is a student as returned to callers: stored fields plus derived group and balance.
type StudentView struct {
	Student
	Group   Group   `json:"groupe"`
	Balance Balance `json:"solde"`
}

// ClassRoster lists the students of one class.
type ClassRoster struct {
	ClassLabel string        `json:"classe"`
	Group      Group         `json:"groupe"`
	Students   []StudentView `json:"eleves"`
}
