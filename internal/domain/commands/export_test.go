package commands

// ShortHash exports shortHash for testing.
var ShortHash = shortHash //nolint:gochecknoglobals // test export

// SortedKeys exports sortedKeys for testing.
var SortedKeys = sortedKeys //nolint:gochecknoglobals // test export
