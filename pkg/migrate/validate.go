package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"
)

var fileNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks every .sql file in dir before anything touches a
// database and reports all problems at once.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("migrations dir is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("migrations dir: %w", err)
	}
	return validateFS(os.DirFS(dir))
}

func validateFS(fsys fs.FS) error {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return errors.New("no migrations found")
	}

	var problems error
	owners := make(map[string]string, len(names))
	for _, name := range names {
		match := fileNameRe.FindStringSubmatch(name)
		if match == nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: want YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		version := match[1]
		if _, err := time.Parse(versionLayout, version); err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: version is not a timestamp", name))
		}
		if other, dup := owners[version]; dup {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", name, version, other))
		}
		owners[version] = name
		problems = multierr.Append(problems, checkAnnotations(fsys, name))
	}
	return problems
}

// checkAnnotations requires both goose sections, Up before Down.
func checkAnnotations(fsys fs.FS, name string) error {
	body, err := fs.ReadFile(fsys, path.Clean(name))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	text := string(body)
	up := strings.Index(text, "-- +goose Up")
	down := strings.Index(text, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf("%s: missing -- +goose Up", name)
	case down < 0:
		return fmt.Errorf("%s: missing -- +goose Down", name)
	case down < up:
		return fmt.Errorf("%s: -- +goose Down comes before -- +goose Up", name)
	}
	return nil
}
