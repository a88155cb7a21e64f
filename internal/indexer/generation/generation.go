// Package generation manages versioned index directories under an index
// root. A build writes a fresh generation and publishes it by atomically
// replacing the CURRENT pointer file; readers resolve CURRENT to find the
// live one.
package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	CurrentFile  = "CURRENT"
	ManifestFile = "manifest.json"
	DomainsFile  = "domains.txt"
	IndexDir     = "bleve"

	// FormatVersion is bumped whenever the manifest or field layout
	// changes incompatibly.
	FormatVersion = 1

	dirPrefix = "gen-"
)

var ErrNoGeneration = errors.New("no index generation found")

// DomainStat summarises one domain of a build.
type DomainStat struct {
	Domain       string  `json:"domain"`
	Pages        int     `json:"pages"`
	Links        int     `json:"links"`
	Skipped      int     `json:"skipped"`
	Iterations   int     `json:"iterations"`
	Converged    bool    `json:"converged"`
	MaxAuthority float64 `json:"max_authority"`
}

// Manifest describes a published generation.
type Manifest struct {
	Version       int           `json:"version"`
	ID            string        `json:"id"`
	CreatedAt     time.Time     `json:"created_at"`
	Pages         int           `json:"pages"`
	Skipped       int           `json:"skipped"`
	SizeBytes     int64         `json:"size_bytes"`
	BuildDuration time.Duration `json:"build_duration_ns"`
	Domains       []DomainStat  `json:"domains"`
}

// Domain returns the stats of name, if present.
func (m *Manifest) Domain(name string) (DomainStat, bool) {
	for _, d := range m.Domains {
		if d.Domain == name {
			return d, true
		}
	}
	return DomainStat{}, false
}

// Generation is one versioned index directory.
type Generation struct {
	Root string
	ID   string
	Dir  string
}

// New creates an empty generation directory under root. Names sort by
// creation time.
func New(root string) (*Generation, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating index root: %w", err)
	}
	id := fmt.Sprintf("%s%d-%s", dirPrefix, time.Now().UnixNano(), uuid.NewString()[:8])
	dir := filepath.Join(root, id)
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating generation directory: %w", err)
	}
	return &Generation{Root: root, ID: id, Dir: dir}, nil
}

func (g *Generation) IndexPath() string {
	return filepath.Join(g.Dir, IndexDir)
}

func (g *Generation) WriteManifest(m *Manifest) error {
	m.Version = FormatVersion
	m.ID = g.ID
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return writeAtomic(filepath.Join(g.Dir, ManifestFile), data)
}

func (g *Generation) WriteDomains(domains []string) error {
	var b strings.Builder
	for _, d := range domains {
		b.WriteString(d)
		b.WriteByte('\n')
	}
	return writeAtomic(filepath.Join(g.Dir, DomainsFile), []byte(b.String()))
}

// Publish points CURRENT at this generation.
func (g *Generation) Publish() error {
	return writeAtomic(filepath.Join(g.Root, CurrentFile), []byte(g.ID+"\n"))
}

// Discard removes the generation directory.
func (g *Generation) Discard() error {
	return os.RemoveAll(g.Dir)
}

// writeAtomic writes to a temp file, syncs and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(tmp), err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", filepath.Base(tmp), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing %s: %w", filepath.Base(tmp), err)
	}
	f.Close()
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Current returns the generation id CURRENT names under root.
func Current(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, CurrentFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoGeneration
		}
		return "", fmt.Errorf("reading %s: %w", CurrentFile, err)
	}
	id := strings.TrimSpace(string(data))
	if id == "" || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid %s contents %q", CurrentFile, id)
	}
	return id, nil
}

// Resolve maps path to a generation directory. path may be an index root
// holding CURRENT or a generation directory itself.
func Resolve(path string) (string, error) {
	id, err := Current(path)
	switch {
	case err == nil:
		return filepath.Join(path, id), nil
	case !errors.Is(err, ErrNoGeneration):
		return "", err
	}
	if _, err := os.Stat(filepath.Join(path, ManifestFile)); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrNoGeneration)
}

func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported index format version %d", m.Version)
	}
	return &m, nil
}

func ReadDomains(dir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, DomainsFile))
	if err != nil {
		return nil, fmt.Errorf("reading domains: %w", err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

// List returns the generation ids under root, oldest first.
func List(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("listing index root: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), dirPrefix) {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Prune removes the oldest generations so that at most keep remain. The
// generation CURRENT names is never removed.
func Prune(root string, keep int) ([]string, error) {
	if keep < 1 {
		keep = 1
	}
	ids, err := List(root)
	if err != nil {
		return nil, err
	}
	current, err := Current(root)
	if err != nil && !errors.Is(err, ErrNoGeneration) {
		return nil, err
	}

	var removed []string
	excess := len(ids) - keep
	for _, id := range ids {
		if excess <= 0 {
			break
		}
		if id == current {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, id)); err != nil {
			return removed, fmt.Errorf("removing generation %s: %w", id, err)
		}
		removed = append(removed, id)
		excess--
	}
	return removed, nil
}

// DirSize sums the sizes of the regular files below dir.
func DirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}
