package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const versionLayout = "20060102150405"

var (
	fileNameRe     = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)
)

type migrationFile struct {
	Version int64
	Name    string
	File    string
}

// listMigrations returns the .sql files in fsys sorted by version, plus the
// names of .sql files that do not follow the naming scheme.
func listMigrations(fsys fs.FS) ([]migrationFile, []string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, nil, err
	}

	var (
		files   []migrationFile
		invalid []string
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		m := fileNameRe.FindStringSubmatch(e.Name())
		if m == nil {
			invalid = append(invalid, e.Name())
			continue
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		files = append(files, migrationFile{Version: version, Name: m[2], File: e.Name()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, invalid, nil
}

// ValidateDir checks every migration in dir: filename scheme, unique
// versions and the goose Up/Down annotations. All problems are reported
// together.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return validateFS(os.DirFS(dir))
}

func validateFS(fsys fs.FS) error {
	files, invalid, err := listMigrations(fsys)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	var errs error
	for _, name := range invalid {
		errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
	}

	for i, f := range files {
		if i > 0 && files[i-1].Version == f.Version {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %d in %q and %q", f.Version, files[i-1].File, f.File))
		}

		b, err := fs.ReadFile(fsys, f.File)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read %q: %w", f.File, err))
			continue
		}
		body := string(b)
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(body, marker) {
				errs = multierr.Append(errs, fmt.Errorf("migration %q missing %q", f.File, marker))
			}
		}
	}
	return errs
}

// CreateSQLMigration writes an empty goose migration named
// <dir>/<YYYYMMDDHHMMSS>_<name>.sql. The version is bumped past the newest
// existing file so migrations created in the same second stay ordered.
func CreateSQLMigration(dir string, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}

	safe := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	safe = strings.Trim(nameSanitizeRe.ReplaceAllString(safe, "_"), "_")
	if safe == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	now := time.Now().UTC()
	existing, _, err := listMigrations(os.DirFS(dir))
	if err != nil {
		return "", fmt.Errorf("scan %q: %w", dir, err)
	}
	if n := len(existing); n > 0 {
		latest, perr := time.Parse(versionLayout, strconv.FormatInt(existing[n-1].Version, 10))
		if perr == nil && !now.After(latest) {
			now = latest.Add(time.Second)
		}
	}

	fullpath := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", now.Format(versionLayout), safe))
	template := fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`, safe)

	f, err := os.OpenFile(fullpath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration %q: %w", fullpath, err)
	}
	if _, err := f.WriteString(template); err != nil {
		return "", multierr.Append(fmt.Errorf("write migration %q: %w", fullpath, err), f.Close())
	}
	return fullpath, f.Close()
}

// ValidateEmbedded runs ValidateDir's checks on the compiled-in migrations.
func ValidateEmbedded() error {
	return validateFS(Migrations())
}
