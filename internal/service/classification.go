package service

import (
	"strings"

	"github.com/noah-isme/scolarite-api/internal/models"
)

// DefaultPrimaryClasses lists the nursery and primary class labels.
var DefaultPrimaryClasses = []string{"MATERNELLE", "PS", "MS", "GS", "CP", "CP1", "CP2", "CE1", "CE2", "CM1", "CM2"}

// ClassificationPolicy maps a class label to its group.
type ClassificationPolicy struct {
	primary map[string]struct{}
}

// NewClassificationPolicy builds a policy from the primary class labels. An
// empty list falls back to DefaultPrimaryClasses.
func NewClassificationPolicy(primaryClasses []string) *ClassificationPolicy {
	if len(primaryClasses) == 0 {
		primaryClasses = DefaultPrimaryClasses
	}
	set := make(map[string]struct{}, len(primaryClasses))
	for _, label := range primaryClasses {
		if label = NormalizeClassLabel(label); label != "" {
			set[label] = struct{}{}
		}
	}
	return &ClassificationPolicy{primary: set}
}

// Classify returns GroupPrimary for labels of the primary set and
// GroupSecondary for everything else.
func (p *ClassificationPolicy) Classify(label string) models.Group {
	if _, ok := p.primary[NormalizeClassLabel(label)]; ok {
		return models.GroupPrimary
	}
	return models.GroupSecondary
}

// NormalizeClassLabel trims, collapses inner whitespace and uppercases a class label.
func NormalizeClassLabel(label string) string {
	return strings.ToUpper(collapseSpaces(label))
}
