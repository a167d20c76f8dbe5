package vfs

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// MountEntry is one configured mapping from a real directory to a virtual
// path exposed to clients. Entries are created at startup and immutable for
// the process lifetime.
type MountEntry struct {
	// Source is the absolute real directory being exported
	Source string

	// Target is the absolute virtual path the directory appears under
	Target string

	// ReadOnly rejects every mutating operation under this mount,
	// regardless of the global read-only flag
	ReadOnly bool

	// Description is free-form operator text, surfaced by MOUNT EXPORT/DUMP
	Description string
}

// MountRegistry is the ordered collection of configured mounts. It resolves
// virtual paths to (mount, relative real path) pairs using longest-target-
// prefix matching, ties broken by configuration order (first match wins).
//
// The registry is read-only after construction and safe for concurrent use
// without synchronization.
type MountRegistry struct {
	mounts []MountEntry

	// rootIndex is the index of a mount targeting "/" exactly, or -1.
	// Such a mount backs the virtual root with a real directory; deeper
	// targets still shadow it via longest-prefix matching.
	rootIndex int
}

// NewMountRegistry validates the configured mounts and builds the registry.
//
// Startup invariants (violations are fatal, per the configuration contract):
//   - at least one mount
//   - every target is absolute and normalized
//   - targets are unique
//   - every source is an absolute path to an existing directory
func NewMountRegistry(mounts []MountEntry) (*MountRegistry, error) {
	if len(mounts) == 0 {
		return nil, fmt.Errorf("at least one mount must be configured")
	}

	seen := make(map[string]bool, len(mounts))
	rootIndex := -1

	for i := range mounts {
		m := &mounts[i]

		if !strings.HasPrefix(m.Target, "/") {
			return nil, fmt.Errorf("mount %d: target %q must be absolute", i, m.Target)
		}
		m.Target = path.Clean(m.Target)

		if seen[m.Target] {
			return nil, fmt.Errorf("mount %d: duplicate target %q", i, m.Target)
		}
		seen[m.Target] = true

		if !filepath.IsAbs(m.Source) {
			return nil, fmt.Errorf("mount %d: source %q must be absolute", i, m.Source)
		}
		m.Source = filepath.Clean(m.Source)

		info, err := os.Stat(m.Source)
		if err != nil {
			return nil, fmt.Errorf("mount %d: source %q does not exist: %w", i, m.Source, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("mount %d: source %q is not a directory", i, m.Source)
		}

		if m.Target == "/" {
			rootIndex = i
		}
	}

	return &MountRegistry{mounts: mounts, rootIndex: rootIndex}, nil
}

// Len returns the number of configured mounts.
func (r *MountRegistry) Len() int { return len(r.mounts) }

// Mount returns the entry at the given configuration index.
func (r *MountRegistry) Mount(index int) *MountEntry { return &r.mounts[index] }

// Mounts returns all entries in configuration order.
func (r *MountRegistry) Mounts() []MountEntry { return r.mounts }

// RootMount returns the mount targeting "/" and its index, or (nil, -1).
func (r *MountRegistry) RootMount() (*MountEntry, int) {
	if r.rootIndex < 0 {
		return nil, -1
	}
	return &r.mounts[r.rootIndex], r.rootIndex
}

// Resolve maps a virtual path to its owning mount.
//
// The match is the configured mount whose target is the longest prefix (on
// path segment boundaries) of the virtual path; earlier configuration order
// wins among equal-length candidates. rest is the virtual path relative to
// the mount target, "" for the mount root itself.
//
// The virtual root "/" resolves to the "/" mount when one is configured;
// otherwise Resolve returns ErrNotFound and callers handle the synthetic root.
func (r *MountRegistry) Resolve(virtualPath string) (int, *MountEntry, string, error) {
	vp, err := NormalizeVirtual(virtualPath)
	if err != nil {
		return -1, nil, "", err
	}

	best := -1
	bestLen := -1
	var bestRest string

	for i := range r.mounts {
		target := r.mounts[i].Target

		var rest string
		switch {
		case target == "/":
			rest = strings.TrimPrefix(vp, "/")
		case vp == target:
			rest = ""
		case strings.HasPrefix(vp, target+"/"):
			rest = vp[len(target)+1:]
		default:
			continue
		}

		if len(target) > bestLen {
			best = i
			bestLen = len(target)
			bestRest = rest
		}
	}

	if best < 0 {
		return -1, nil, "", newError(ErrNotFound, "no mount for path", vp)
	}
	return best, &r.mounts[best], bestRest, nil
}

// RealPath joins a mount source with a relative virtual remainder and
// guarantees the result stays inside the mount source after normalization.
//
// This is the traversal-containment boundary: any rest that resolves to a
// location outside the source (".." escapes, absolute injections) fails with
// ErrInvalidPath before any filesystem call is made.
func (r *MountRegistry) RealPath(entry *MountEntry, rest string) (string, error) {
	if strings.ContainsRune(rest, 0) {
		return "", newError(ErrInvalidPath, "path contains NUL byte", rest)
	}
	if strings.HasPrefix(rest, "/") {
		return "", newError(ErrInvalidPath, "relative path is absolute", rest)
	}

	real := filepath.Clean(filepath.Join(entry.Source, filepath.FromSlash(rest)))
	if real != entry.Source && !strings.HasPrefix(real, entry.Source+string(filepath.Separator)) {
		return "", newError(ErrInvalidPath, "path escapes mount source", rest)
	}
	return real, nil
}

// ComposeRoot produces the names listed in the synthetic root directory:
// the first path segment of every mount target, deduplicated, in
// configuration order. A mount targeting "/" contributes no segment (its
// real directory contents are merged in by the dispatcher instead).
func (r *MountRegistry) ComposeRoot() []string {
	return r.ChildSegments("/")
}

// ChildSegments lists the synthetic directory entries a virtual directory
// gains from mount targets nested below it: the next path segment of every
// target strictly under dir, deduplicated, in configuration order. Targets
// that equal dir contribute nothing (their real contents are listed by the
// dispatcher).
func (r *MountRegistry) ChildSegments(dir string) []string {
	prefix := strings.TrimSuffix(dir, "/") + "/"

	var names []string
	seen := make(map[string]bool)

	for i := range r.mounts {
		target := r.mounts[i].Target
		if !strings.HasPrefix(target, prefix) || target == dir {
			continue
		}
		segment := strings.SplitN(target[len(prefix):], "/", 2)[0]
		if segment != "" && !seen[segment] {
			seen[segment] = true
			names = append(names, segment)
		}
	}
	return names
}

// IsSyntheticDir reports whether a virtual path exists purely as namespace
// structure: the root itself (when no mount targets "/") or an intermediate
// segment of a deeper mount target, e.g. "/a" when a mount targets "/a/b".
func (r *MountRegistry) IsSyntheticDir(virtualPath string) bool {
	if virtualPath == "/" {
		return r.rootIndex < 0
	}
	prefix := virtualPath + "/"
	for i := range r.mounts {
		if strings.HasPrefix(r.mounts[i].Target, prefix) {
			return true
		}
	}
	return false
}

// NormalizeVirtual canonicalizes a client-visible path: it must be absolute,
// is cleaned of "." and ".." segments, and may not contain NUL bytes.
// Normalization never consults the filesystem.
func NormalizeVirtual(virtualPath string) (string, error) {
	if virtualPath == "" {
		return "/", nil
	}
	if strings.ContainsRune(virtualPath, 0) {
		return "", newError(ErrInvalidPath, "path contains NUL byte", virtualPath)
	}
	if !strings.HasPrefix(virtualPath, "/") {
		return "", newError(ErrInvalidPath, "path must be absolute", virtualPath)
	}
	return path.Clean(virtualPath), nil
}

// JoinVirtual appends a single directory-entry name to a virtual directory
// path. Names may not be empty, contain separators or NUL bytes; "." returns
// the directory itself and ".." its parent, clamped at the root.
func JoinVirtual(dir, name string) (string, error) {
	switch {
	case name == "" || strings.ContainsRune(name, 0):
		return "", newError(ErrInvalidPath, "invalid entry name", name)
	case strings.Contains(name, "/"):
		return "", newError(ErrInvalidPath, "entry name contains separator", name)
	case name == ".":
		return dir, nil
	case name == "..":
		parent := path.Dir(dir)
		return parent, nil
	}
	return path.Join(dir, name), nil
}
