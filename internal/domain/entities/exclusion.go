package entities

// DenyList is the set of "owner/name" repositories that must never be mirrored.
// Matching is exact and case-sensitive.
type DenyList map[string]struct{}

// NewDenyList builds a DenyList from the configured entries.
func NewDenyList(entries []string) DenyList {
	list := make(DenyList, len(entries))
	for _, entry := range entries {
		list[entry] = struct{}{}
	}
	return list
}

// Excludes reports whether the descriptor is on the list.
func (l DenyList) Excludes(descriptor RepositoryDescriptor) bool {
	_, ok := l[descriptor.FullName()]
	return ok
}
