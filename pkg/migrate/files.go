package migrate

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	migrationFile = regexp.MustCompile(`^(\d{14})_([a-z0-9]+(?:_[a-z0-9]+)*)\.sql$`)
	unsafeRun     = regexp.MustCompile(`[^a-z0-9]+`)
)

// slug turns a free-form description into the snake_case part of a filename.
func slug(name string) string {
	return strings.Trim(unsafeRun.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

func skeleton(label string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "-- +goose Up\n-- +goose StatementBegin\n-- %s\n-- +goose StatementEnd\n\n", label)
	fmt.Fprintf(&b, "-- +goose Down\n-- +goose StatementBegin\n-- undo %s\n-- +goose StatementEnd\n", label)
	return b.Bytes()
}

// CreateSQLMigration writes an empty goose migration named
// <dir>/<UTC timestamp>_<slug>.sql and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	switch {
	case dir == "":
		return "", errors.New("migrations dir is required")
	case strings.TrimSpace(name) == "":
		return "", errors.New("migration name is required")
	}
	label := slug(name)
	if label == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	target := filepath.Join(dir, time.Now().UTC().Format(versionLayout)+"_"+label+".sql")
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	if _, err := f.Write(skeleton(label)); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	return target, f.Close()
}

// ValidateDir checks the migrations on disk. See ValidateFS.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("migrations dir is required")
	}
	return ValidateFS(os.DirFS(dir), ".")
}

// ValidateFS checks every .sql file under root: the filename carries a
// unique 14-digit version and the body has both goose section markers.
// Problems are collected so one run reports all of them.
func ValidateFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	versions := make(map[string]string, len(entries))
	var problems []error
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		m := migrationFile.FindStringSubmatch(name)
		if m == nil {
			problems = append(problems, fmt.Errorf("%s: want <YYYYMMDDHHMMSS>_<snake_name>.sql", name))
			continue
		}
		if _, err := time.Parse(versionLayout, m[1]); err != nil {
			problems = append(problems, fmt.Errorf("%s: version is not a timestamp", name))
		}
		if other, dup := versions[m[1]]; dup {
			problems = append(problems, fmt.Errorf("%s: version %s already used by %s", name, m[1], other))
		}
		versions[m[1]] = name

		if err := checkSections(fsys, path.Join(root, name)); err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(problems...)
}

func checkSections(fsys fs.FS, name string) error {
	f, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	var up, down bool
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		switch strings.TrimSpace(sc.Text()) {
		case "-- +goose Up":
			up = true
		case "-- +goose Down":
			if !up {
				return errors.New("Down section precedes Up")
			}
			down = true
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if !up || !down {
		return errors.New(`needs both "-- +goose Up" and "-- +goose Down"`)
	}
	return nil
}
