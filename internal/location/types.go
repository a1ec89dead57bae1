package location

import "time"

// Root is the parent of top-level locations.
const Root int64 = 0

// Location is a named place devices can sit in or be linked to.
type Location struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ParentLocation int64     `json:"parent_location"`
	Synonyms       []string  `json:"synonyms"`
	Settings       Settings  `json:"settings"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Settings holds location-specific configuration as a JSON map.
type Settings map[string]any

// DeepCopy returns a copy with its own synonyms slice and top-level settings map.
func (l *Location) DeepCopy() *Location {
	if l == nil {
		return nil
	}
	cp := *l
	if l.Synonyms != nil {
		cp.Synonyms = append([]string(nil), l.Synonyms...)
	}
	if l.Settings != nil {
		cp.Settings = make(Settings, len(l.Settings))
		for k, v := range l.Settings {
			cp.Settings[k] = v
		}
	}
	return &cp
}
