package export

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// NumericColumns are written as number cells when their values parse.
	// Every other column stays text, so labels like "6E1" are never read as numbers.
	NumericColumns []string
}

func (d Dataset) isNumeric(header string) bool {
	for _, col := range d.NumericColumns {
		if col == header {
			return true
		}
	}
	return false
}
