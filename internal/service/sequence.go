package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identifier generation for admission numbers, employee ids and book ids.
// Callers read the last assigned value outside the write transaction; the
// unique constraint on the column is the final arbiter under concurrency and
// a violation surfaces as a conflict without retrying.

const (
	employeeIDPrefix = "EMP"
	bookIDPrefix     = "BK-"
)

// NextAdmissionNumber returns the next admission number in the
// {year}{4-digit sequence} scheme. The sequence restarts at 0001 when the
// year changes and seeds at {year}0001 when no prior number exists.
func NextAdmissionNumber(last string, year int) (string, error) {
	if last == "" {
		return fmt.Sprintf("%d0001", year), nil
	}
	if len(last) != 8 {
		return "", fmt.Errorf("malformed admission number %q", last)
	}
	lastYear, err := strconv.Atoi(last[:4])
	if err != nil {
		return "", fmt.Errorf("malformed admission number %q", last)
	}
	if lastYear != year {
		return fmt.Sprintf("%d0001", year), nil
	}
	seq, err := strconv.Atoi(last[4:])
	if err != nil {
		return "", fmt.Errorf("malformed admission number %q", last)
	}
	if seq >= 9999 {
		return "", fmt.Errorf("admission number sequence exhausted for year %d", year)
	}
	return fmt.Sprintf("%d%04d", year, seq+1), nil
}

// NextEmployeeID returns the next EMP-prefixed employee id. Ids are strictly
// monotonic with no year reset and seed at EMP00001.
func NextEmployeeID(last string) (string, error) {
	if last == "" {
		return employeeIDPrefix + "00001", nil
	}
	if !strings.HasPrefix(last, employeeIDPrefix) {
		return "", fmt.Errorf("malformed employee id %q", last)
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(last, employeeIDPrefix))
	if err != nil {
		return "", fmt.Errorf("malformed employee id %q", last)
	}
	return fmt.Sprintf("%s%05d", employeeIDPrefix, seq+1), nil
}

// NewBookID returns a BK-prefixed random token of 8 uppercase hex characters.
// There is no retry loop; a storage-level uniqueness violation is reported to
// the caller as a conflict.
func NewBookID() string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return bookIDPrefix + strings.ToUpper(token[:8])
}

// NewApplicationNumber returns an ADM-{YYMM}-{rand4} admission application
// number for the given submission time.
func NewApplicationNumber(now time.Time) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("ADM-%s-%s", now.Format("0601"), strings.ToUpper(token[:4]))
}
