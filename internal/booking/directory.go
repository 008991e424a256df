package booking

import "sort"

// StaticDirectory is an interviewer directory loaded once from config.
type StaticDirectory struct {
	byID map[string]Interviewer
}

func NewStaticDirectory(interviewers []Interviewer) *StaticDirectory {
	d := &StaticDirectory{byID: make(map[string]Interviewer, len(interviewers))}
	for _, iv := range interviewers {
		d.byID[iv.ID] = iv
	}
	return d
}

func (d *StaticDirectory) Lookup(id string) (Interviewer, bool) {
	iv, ok := d.byID[id]
	return iv, ok
}

func (d *StaticDirectory) List() []Interviewer {
	out := make([]Interviewer, 0, len(d.byID))
	for _, iv := range d.byID {
		out = append(out, iv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
