package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/banking/sanctions-screening/internal/domain"
)

var (
	// ErrNoClientFiles is returned when the clients directory holds no dated roster
	ErrNoClientFiles = errors.New("no client files found")
	// ErrMissingColumns is returned when a roster lacks a required header
	ErrMissingColumns = errors.New("missing required columns")
)

// RequiredColumns are the headers every roster file must carry
var RequiredColumns = []string{"SN", "File_no", "BRN", "Company", "Officer", "Role"}

var rosterFile = regexp.MustCompile(`^(\d{8})_clients\.csv$`)

// FindLatest returns the roster in dir with the latest YYYYMMDD filename date
func FindLatest(dir string) (string, time.Time, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", time.Time{}, ErrNoClientFiles
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("read clients dir: %w", err)
	}

	var (
		latestName string
		latestDate time.Time
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := rosterFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		date, err := time.Parse("20060102", m[1])
		if err != nil {
			continue
		}
		if latestName == "" || date.After(latestDate) {
			latestName, latestDate = e.Name(), date
		}
	}
	if latestName == "" {
		return "", time.Time{}, ErrNoClientFiles
	}
	return filepath.Join(dir, latestName), latestDate, nil
}

// Load reads a roster CSV file
func Load(path string) ([]domain.ClientRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses roster CSV content. Extra columns are ignored.
func Read(r io.Reader) ([]domain.ClientRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(RequiredColumns, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("read roster header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	field := func(row []string, name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	clients := make([]domain.ClientRecord, 0)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster row: %w", err)
		}
		clients = append(clients, domain.ClientRecord{
			SerialNumber: field(row, "SN"),
			FileNo:       field(row, "File_no"),
			BRN:          field(row, "BRN"),
			Company:      field(row, "Company"),
			Officer:      field(row, "Officer"),
			Role:         field(row, "Role"),
		})
	}
	return clients, nil
}
