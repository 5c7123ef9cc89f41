package domain

// Page is one slice of an ordered listing plus the metadata needed to walk it.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// AppStatus maps a component name to whether it is healthy.
type AppStatus map[string]bool

// Healthy reports whether no component is down. An empty status is healthy.
func (s AppStatus) Healthy() bool {
	for _, ok := range s {
		if !ok {
			return false
		}
	}
	return true
}
