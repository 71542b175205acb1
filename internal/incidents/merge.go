package incidents

// IndexOf returns the position of the incident with the given id, or -1.
func IndexOf(list []Incident, id string) int {
	for i := range list {
		if list[i].IncidentID == id {
			return i
		}
	}
	return -1
}

// Prepend returns a new collection with inc in front of list. It does not
// look for an existing record with the same id.
func Prepend(list []Incident, inc Incident) []Incident {
	out := make([]Incident, 0, len(list)+1)
	out = append(out, inc)
	return append(out, list...)
}

// Merge returns a new collection where the record sharing inc's id is
// replaced in place, keeping its position. Unknown ids are prepended.
func Merge(list []Incident, inc Incident) []Incident {
	idx := IndexOf(list, inc.IncidentID)
	if idx < 0 {
		return Prepend(list, inc)
	}
	out := make([]Incident, len(list))
	copy(out, list)
	out[idx] = inc
	return out
}
