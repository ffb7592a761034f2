package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

const monthLayout = "2006-01"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildMonthExportPath returns the key of one month's export, partitioned as
// <dataset>/month=YYYY-MM/<dataset>_YYYY-MM.<extension>.
func BuildMonthExportPath(dataset, month, extension string) (string, error) {
	if err := validatePathComponent(dataset, "dataset"); err != nil {
		return "", err
	}
	if err := ValidateMonth(month); err != nil {
		return "", err
	}
	if err := validatePathComponent(extension, "extension"); err != nil {
		return "", err
	}
	return path.Join(
		dataset,
		"month="+month,
		fmt.Sprintf("%s_%s.%s", dataset, month, extension),
	), nil
}

// BuildSnapshotPath returns the key of the most recent parquet snapshot of a
// dataset. Every close overwrites it.
func BuildSnapshotPath(dataset string) (string, error) {
	if err := validatePathComponent(dataset, "dataset"); err != nil {
		return "", err
	}
	return path.Join(dataset, "latest.parquet"), nil
}

func ValidateMonth(month string) error {
	if _, err := time.Parse(monthLayout, month); err != nil {
		return fmt.Errorf("invalid month %q: want YYYY-MM", month)
	}
	return nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
