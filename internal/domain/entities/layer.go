package entities

// Layer is a data layer of the project, identified by name, exposing its
// ordered field names.
type Layer struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// HasField reports whether the layer exposes a field with the given name.
// Field names are compared exactly.
func (l *Layer) HasField(name string) bool {
	for _, f := range l.Fields {
		if f == name {
			return true
		}
	}
	return false
}
