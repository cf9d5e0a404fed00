package lookup

import (
	"os"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// LogoSource supplies the current set of logo filenames. The matcher
// takes the list as input rather than reading a directory itself, so
// tests inject a fixed set.
type LogoSource interface {
	List() ([]string, error)
}

// StaticLogos is a fixed logo set, used in tests
type StaticLogos []string

func (s StaticLogos) List() ([]string, error) {
	files := make([]string, len(s))
	copy(files, s)
	sort.Strings(files)
	return files, nil
}

const logoCacheKey = "logo_files"

// DirLogos lists logo filenames from a directory, caching the sorted
// listing briefly so each lookup does not hit the filesystem.
type DirLogos struct {
	dir   string
	cache *gocache.Cache
}

// NewDirLogos creates a directory-backed logo source with the given
// listing cache TTL.
func NewDirLogos(dir string, ttl time.Duration) *DirLogos {
	return &DirLogos{
		dir:   dir,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (d *DirLogos) List() ([]string, error) {
	if cached, found := d.cache.Get(logoCacheKey); found {
		return cached.([]string), nil
	}

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	d.cache.Set(logoCacheKey, files, gocache.DefaultExpiration)
	return files, nil
}
