package models

// Dataset is the whole persisted document: two ordered groups of students.
type Dataset struct {
	Primary   []Student `yaml:"primaire" json:"primaire"`
	Secondary []Student `yaml:"secondaire" json:"secondaire"`
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{Primary: []Student{}, Secondary: []Student{}}
}

// Normalize replaces nil collections with empty ones so documents always
// serialize both groups.
func (d *Dataset) Normalize() {
	if d.Primary == nil {
		d.Primary = []Student{}
	}
	if d.Secondary == nil {
		d.Secondary = []Student{}
	}
	for _, group := range []*[]Student{&d.Primary, &d.Secondary} {
		for i := range *group {
			s := &(*group)[i]
			if s.Grades == nil {
				s.Grades = []Grade{}
			}
			if s.Payments == nil {
				s.Payments = []Payment{}
			}
		}
	}
}

func (d *Dataset) group(g Group) *[]Student {
	if g == GroupPrimary {
		return &d.Primary
	}
	return &d.Secondary
}

// Students returns the sequence held by a group.
func (d *Dataset) Students(g Group) []Student {
	return *d.group(g)
}

// Len counts students in both groups.
func (d *Dataset) Len() int {
	return len(d.Primary) + len(d.Secondary)
}

// Find returns a pointer into the dataset for the student with id.
func (d *Dataset) Find(id string) (*Student, Group, bool) {
	for _, g := range []Group{GroupPrimary, GroupSecondary} {
		students := *d.group(g)
		for i := range students {
			if students[i].ID == id {
				return &students[i], g, true
			}
		}
	}
	return nil, "", false
}

// Append adds a student at the end of a group.
func (d *Dataset) Append(g Group, s Student) {
	group := d.group(g)
	*group = append(*group, s)
}

// Remove deletes the student with id from whichever group holds it.
func (d *Dataset) Remove(id string) (Student, Group, bool) {
	for _, g := range []Group{GroupPrimary, GroupSecondary} {
		group := d.group(g)
		for i, s := range *group {
			if s.ID == id {
				*group = append((*group)[:i:i], (*group)[i+1:]...)
				return s, g, true
			}
		}
	}
	return Student{}, "", false
}

// Each visits every student, primary group first, in insertion order.
func (d *Dataset) Each(fn func(Group, *Student)) {
	for _, g := range []Group{GroupPrimary, GroupSecondary} {
		students := *d.group(g)
		for i := range students {
			fn(g, &students[i])
		}
	}
}
