// Package versioncheck compares the running keyissuer version against the
// latest published release, caching the answer on disk.
package versioncheck

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// DefaultCacheTTL is how long a fetched release answer is reused.
const DefaultCacheTTL = 24 * time.Hour

// Result contains the outcome of a version check.
type Result struct {
	CurrentVersion  string `json:"current_version" yaml:"current_version"`
	LatestVersion   string `json:"latest_version,omitempty" yaml:"latest_version,omitempty"`
	ReleaseURL      string `json:"release_url,omitempty" yaml:"release_url,omitempty"`
	UpdateAvailable bool   `json:"update_available" yaml:"update_available"`
	FromCache       bool   `json:"from_cache" yaml:"from_cache"`
	// Error is set when the release feed could not be reached. The result may
	// still carry a stale cached answer.
	Error error `json:"-" yaml:"-"`
}

// Checker performs version checks with caching support.
type Checker struct {
	Releases  *ReleaseClient
	CachePath string
	CacheTTL  time.Duration

	now func() time.Time
}

// NewChecker creates a Checker against the public release feed.
func NewChecker() *Checker {
	return &Checker{
		Releases:  NewReleaseClient(DefaultAPIBase, DefaultTimeout),
		CachePath: CachePath(),
		CacheTTL:  DefaultCacheTTL,
	}
}

func (c *Checker) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// Check compares current against the latest release. A fresh cache entry is
// used without a network call; on fetch errors a stale entry is used.
func (c *Checker) Check(ctx context.Context, current string) *Result {
	result := &Result{CurrentVersion: strings.TrimPrefix(current, "v")}

	cached, cacheErr := readCache(c.CachePath)
	if cacheErr == nil && c.clock().Sub(cached.CheckedAt) < c.CacheTTL {
		result.LatestVersion = cached.LatestVersion
		result.ReleaseURL = cached.ReleaseURL
		result.FromCache = true
	} else {
		release, err := c.Releases.Latest(ctx)
		if err != nil {
			result.Error = err
			if cacheErr != nil {
				return result
			}
			result.LatestVersion = cached.LatestVersion
			result.ReleaseURL = cached.ReleaseURL
			result.FromCache = true
		} else {
			result.LatestVersion = strings.TrimPrefix(release.TagName, "v")
			result.ReleaseURL = release.HTMLURL
			// A cache write failure only costs a refetch next time.
			_ = writeCache(c.CachePath, &cacheEntry{
				LatestVersion: result.LatestVersion,
				ReleaseURL:    result.ReleaseURL,
				CheckedAt:     c.clock().UTC(),
			})
		}
	}

	result.UpdateAvailable = IsNewerVersion(current, result.LatestVersion)
	return result
}

// IsNewerVersion returns true if latest is newer than current under semantic
// versioning. Either side may carry a v prefix. Invalid versions never compare
// as newer, so dev builds are not nagged.
func IsNewerVersion(current, latest string) bool {
	c, l := normalize(current), normalize(latest)
	if !semver.IsValid(c) || !semver.IsValid(l) {
		return false
	}
	return semver.Compare(c, l) < 0
}

func normalize(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

type cacheEntry struct {
	LatestVersion string    `json:"latest_version"`
	ReleaseURL    string    `json:"release_url"`
	CheckedAt     time.Time `json:"checked_at"`
}

// CachePath returns the version cache location under XDG_CACHE_HOME, falling
// back to ~/.cache.
func CachePath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "keyissuer", "version-cache.json")
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "keyissuer", "version-cache.json")
}

func readCache(path string) (*cacheEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func writeCache(path string, entry *cacheEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
