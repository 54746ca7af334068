package models

// ImportRowFailure describes a spreadsheet row that could not become a student.
type ImportRowFailure struct {
	Row    int    `json:"ligne"`
	Reason string `json:"raison"`
}

// ImportResult summarises a spreadsheet import.
type ImportResult struct {
	Imported []string           `json:"importes"`
	Skipped  []ImportRowFailure `json:"ignores,omitempty"`
	Backup   string             `json:"sauvegarde,omitempty"`
}
