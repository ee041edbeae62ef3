package catalog

import "strings"

// NormalizePath strips trailing slashes, keeping "/" for the root.
func NormalizePath(p string) string {
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

// JoinPath appends child to parent with exactly one separator.
func JoinPath(parent, child string) string {
	if parent == "" || parent == "/" {
		return "/" + strings.TrimPrefix(child, "/")
	}
	return strings.TrimSuffix(parent, "/") + "/" + strings.TrimPrefix(child, "/")
}

// ParentPath returns the collection containing p. The root's parent is
// the root.
func ParentPath(p string) string {
	p = NormalizePath(p)
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "/"
	}
	return p[:i]
}

// LastComponent returns the final element of p, "" for the root.
func LastComponent(p string) string {
	p = NormalizePath(p)
	return p[strings.LastIndex(p, "/")+1:]
}

// ZoneFromPath returns the first element of an absolute path, which names
// the zone whose catalog owns it. Returns "" for the root.
func ZoneFromPath(p string) string {
	p = strings.TrimPrefix(p, "/")
	zone, _, _ := strings.Cut(p, "/")
	return zone
}

// HomeRoot returns /<zone>/home.
func HomeRoot(zone string) string {
	return "/" + zone + "/home"
}
