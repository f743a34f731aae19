package ir

// Record is the durable projection of all managed resources. Write-only
// field values are replaced by null before a Record is ever produced, and
// ephemeral resources do not appear at all.
type Record struct {
	Version   int               `json:"version"`
	Serial    int               `json:"serial"`
	Lineage   string            `json:"lineage"`
	Resources []*ResourceRecord `json:"resources"`
}

// ResourceRecord is the persisted form of one resource instance.
type ResourceRecord struct {
	Key           string         `json:"key"` // "type:path"
	Type          string         `json:"type"`
	Name          string         `json:"name"`
	Store         string         `json:"store"`
	Path          string         `json:"path"`
	Fields        map[string]any `json:"fields"`                  // write-only fields are always null
	WriteOnly     []string       `json:"writeOnly,omitempty"`     // names of write-only fields
	FieldVersions map[string]int `json:"fieldVersions,omitempty"` // lastAppliedVersion per write-only field
	Dependencies  []string       `json:"dependencies,omitempty"`
}

// Find returns the record entry for the given key, or nil.
func (r *Record) Find(key string) *ResourceRecord {
	for _, res := range r.Resources {
		if res.Key == key {
			return res
		}
	}
	return nil
}

// Remove deletes the entry for the given key, reporting whether it existed.
func (r *Record) Remove(key string) bool {
	for i, res := range r.Resources {
		if res.Key == key {
			r.Resources = append(r.Resources[:i], r.Resources[i+1:]...)
			return true
		}
	}
	return false
}
