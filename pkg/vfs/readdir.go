package vfs

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// dirCacheSize bounds how many directory snapshots are retained for cookie
// continuation. Eviction only costs a re-listing, so the cache can stay
// small.
const dirCacheSize = 256

// dirSnapshot is a frozen directory listing. Cookies index into names, so a
// client paging through a large directory sees a consistent view as long as
// the snapshot survives in the cache.
type dirSnapshot struct {
	names    []string
	verifier uint64
}

type dirCache struct {
	cache    *lru.Cache[string, *dirSnapshot]
	verifier atomic.Uint64
}

func newDirCache(size int) *dirCache {
	cache, err := lru.New[string, *dirSnapshot](size)
	if err != nil {
		panic(err)
	}
	c := &dirCache{cache: cache}
	c.verifier.Store(uint64(time.Now().UnixNano()))
	return c
}

func (c *dirCache) get(virtualPath string) (*dirSnapshot, bool) {
	return c.cache.Get(virtualPath)
}

func (c *dirCache) put(virtualPath string, names []string) *dirSnapshot {
	snap := &dirSnapshot{names: names, verifier: c.verifier.Add(1)}
	c.cache.Add(virtualPath, snap)
	return snap
}

// invalidate drops the snapshot for a directory whose contents changed, so
// the next listing starts fresh.
func (c *dirCache) invalidate(virtualPath string) {
	c.cache.Remove(virtualPath)
}

// snapshot returns the listing a READDIR call should page over. A zero
// cookie always lists fresh. A continuation reuses the cached snapshot when
// its verifier still matches; otherwise the directory is re-listed, which
// yields the same positions for an unchanged directory since listings are
// sorted.
func (v *VFS) snapshot(dn *node, cookie, verifier uint64) (*dirSnapshot, error) {
	if cookie != 0 {
		if snap, ok := v.dirs.get(dn.virtualPath); ok && snap.verifier == verifier {
			return snap, nil
		}
	}
	names, err := v.listNames(dn)
	if err != nil {
		return nil, err
	}
	return v.dirs.put(dn.virtualPath, names), nil
}
