package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const (
	versionLayout = "20060102150405"
	upMarker      = "-- +goose Up"
	downMarker    = "-- +goose Down"
)

var (
	fileNameRe   = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	unsafeNameRe = regexp.MustCompile(`[^a-z0-9_]+`)
)

// ValidateDir checks every .sql file in dir for a goose-style name, a unique
// version, and an Up section followed by a Down section. All problems are
// reported together.
func ValidateDir(dir string) error {
	versions, err := readVersions(dir)
	if err != nil {
		return err
	}

	var problems error
	seen := make(map[string]string, len(versions))
	for _, name := range sortedNames(versions) {
		version := versions[name]
		if version == "" {
			problems = multierr.Append(problems, fmt.Errorf("invalid migration filename %q (want YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, ok := seen[version]; ok {
			problems = multierr.Append(problems, fmt.Errorf("version %s used by %q and %q", version, prev, name))
			continue
		}
		seen[version] = name
		problems = multierr.Append(problems, checkSections(filepath.Join(dir, name)))
	}
	return problems
}

// CreateSQLMigration writes an empty goose migration named after name and
// returns its path. The version never collides with an existing file in dir.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	existing, err := readVersions(dir)
	if err != nil {
		return "", err
	}
	version := nextVersion(time.Now().UTC(), existing)
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version, slug))

	body := fmt.Sprintf("%s\n-- +goose StatementBegin\n-- %s\n-- +goose StatementEnd\n\n%s\n-- +goose StatementBegin\n-- revert %s\n-- +goose StatementEnd\n",
		upMarker, slug, downMarker, slug)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}

// readVersions maps each .sql file name in dir to its version, or "" when
// the name does not match.
func readVersions(dir string) (map[string]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}
	out := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		if m := fileNameRe.FindStringSubmatch(e.Name()); m != nil {
			out[e.Name()] = m[1]
		} else {
			out[e.Name()] = ""
		}
	}
	return out, nil
}

func checkSections(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}
	txt := string(b)
	up := strings.Index(txt, upMarker)
	down := strings.Index(txt, downMarker)
	switch {
	case up < 0:
		return fmt.Errorf("%s: missing %q", filepath.Base(path), upMarker)
	case down < 0:
		return fmt.Errorf("%s: missing %q", filepath.Base(path), downMarker)
	case down < up:
		return fmt.Errorf("%s: Down section precedes Up", filepath.Base(path))
	}
	return nil
}

func nextVersion(now time.Time, existing map[string]string) string {
	candidate := now.Format(versionLayout)
	latest := ""
	for _, v := range existing {
		if v > latest {
			latest = v
		}
	}
	if latest == "" || candidate > latest {
		return candidate
	}
	t, err := time.Parse(versionLayout, latest)
	if err != nil {
		return candidate
	}
	return t.Add(time.Second).Format(versionLayout)
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = unsafeNameRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
