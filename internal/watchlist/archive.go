package watchlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/banking/sanctions-screening/internal/domain"
)

const timestampLayout = "20060102_150405"

// ErrNoCachedList is returned when the archive holds no downloaded list
var ErrNoCachedList = errors.New("no archived watchlist")

var archivedFile = regexp.MustCompile(`^un_sc_consolidated_(\d{8}_\d{6})\.xml$`)

// Archive stores raw list downloads and their metadata in a directory
type Archive struct {
	dir string
}

// NewArchive creates an archive rooted at dir
func NewArchive(dir string) *Archive {
	return &Archive{dir: dir}
}

// Save writes the raw document and a metadata JSON file, filling in the file name
func (a *Archive) Save(body []byte, meta *domain.WatchlistMetadata, at time.Time) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	ts := at.Format(timestampLayout)
	meta.FileName = "un_sc_consolidated_" + ts + ".xml"

	xmlPath := filepath.Join(a.dir, meta.FileName)
	if err := os.WriteFile(xmlPath, body, 0o644); err != nil {
		return "", fmt.Errorf("write watchlist: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(a.dir, "metadata_"+ts+".json"), data, 0o644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}
	return xmlPath, nil
}

// Latest parses the most recent archived download
func (a *Archive) Latest() (*domain.Watchlist, error) {
	entries, err := os.ReadDir(a.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoCachedList
	}
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var stamps []string
	for _, e := range entries {
		if m := archivedFile.FindStringSubmatch(e.Name()); m != nil && !e.IsDir() {
			stamps = append(stamps, m[1])
		}
	}
	if len(stamps) == 0 {
		return nil, ErrNoCachedList
	}
	sort.Strings(stamps)
	ts := stamps[len(stamps)-1]

	f, err := os.Open(filepath.Join(a.dir, "un_sc_consolidated_"+ts+".xml"))
	if err != nil {
		return nil, fmt.Errorf("open archived watchlist: %w", err)
	}
	defer f.Close()

	wl, err := Parse(f)
	if err != nil {
		return nil, err
	}

	// Prefer the metadata recorded at download time
	if data, err := os.ReadFile(filepath.Join(a.dir, "metadata_"+ts+".json")); err == nil {
		var meta domain.WatchlistMetadata
		if err := json.Unmarshal(data, &meta); err == nil {
			wl.Metadata = meta
		}
	}
	return wl, nil
}
