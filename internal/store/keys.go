package store

import (
	"net/url"
	"sort"
	"strings"
)

// Key segments that separate row lookups from list queries. Scopes and
// filters always sit behind queryMarker, so no scope can produce a row key.
const (
	rowMarker   = "row"
	queryMarker = "q"
)

// Key joins a resource, a scope and any filter parts into a cache key of the
// form "<resource>:<scope>:<filter1>:<filter2>". Parts are escaped so a colon
// inside a value cannot collide with another query shape.
func Key(resource, scope string, filters ...string) string {
	parts := make([]string, 0, 2+len(filters))
	parts = append(parts, escapeKeyPart(resource), escapeKeyPart(scope))
	for _, f := range filters {
		parts = append(parts, escapeKeyPart(f))
	}
	return strings.Join(parts, ":")
}

// ResourcePrefix matches every key built for resource.
func ResourcePrefix(resource string) string {
	return escapeKeyPart(resource) + ":"
}

// RowKey is the cache key for a single row lookup.
func RowKey(sheet, id string) string {
	return Key(sheet, rowMarker, id)
}

// QueryKey is the cache key for a list query. Filters are sorted so equal
// queries share an entry regardless of map order. Filter names and values
// are escaped separately so "=" inside either cannot shift the boundary.
func QueryKey(sheet string, q Query) string {
	names := make([]string, 0, len(q.Filters))
	for name := range q.Filters {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, 3+len(names))
	parts = append(parts, escapeKeyPart(sheet), queryMarker, escapeKeyPart(q.scope()))
	for _, name := range names {
		parts = append(parts, escapeKeyPart(name)+"="+escapeKeyPart(q.Filters[name]))
	}
	return strings.Join(parts, ":")
}

func escapeKeyPart(s string) string {
	return url.QueryEscape(s)
}
