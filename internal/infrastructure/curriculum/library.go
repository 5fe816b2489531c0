package curriculum

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/content"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/pkg/logger"
)

//go:embed defaults
var defaultsFS embed.FS

// Defaults returns the built-in curriculum.
func Defaults() fs.FS {
	sub, err := fs.Sub(defaultsFS, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}

// ReloadResult describes one load.
type ReloadResult struct {
	Version         string
	PreviousVersion string
	Items           int
	Changed         bool
	RowErrors       []string
	LoadedAt        time.Time
}

// Library holds the current belt ladder and curriculum snapshot. Reload
// swaps both atomically; readers keep whatever snapshot they already hold.
type Library struct {
	fsys  fs.FS
	sheet SheetConfig
	log   *logger.Logger

	mu       sync.RWMutex
	belts    *belt.Catalog
	catalog  *content.Catalog
	loadedAt time.Time
}

var _ content.Source = (*Library)(nil)

// NewLibrary creates an unloaded Library reading from fsys.
func NewLibrary(fsys fs.FS, log *logger.Logger) *Library {
	if log == nil {
		log = logger.Nop()
	}
	return &Library{fsys: fsys, sheet: DefaultSheetConfig(), log: log.Named("curriculum")}
}

// WithSheetConfig sets the spreadsheet layout.
func (l *Library) WithSheetConfig(cfg SheetConfig) *Library {
	l.sheet = cfg
	return l
}

// Snapshot implements content.Source.
func (l *Library) Snapshot(context.Context) (*content.Catalog, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.catalog == nil {
		return nil, shared.NewDomainError("curriculum", "Snapshot", shared.ErrServiceUnavailable, "curriculum not loaded")
	}
	return l.catalog, nil
}

// Belts returns the loaded belt ladder, or the standard one before the
// first load.
func (l *Library) Belts() *belt.Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.belts == nil {
		return belt.StandardCatalog()
	}
	return l.belts
}

// Reload reads every file again. On failure the previous snapshot stays.
// Sheet rows that fail are skipped and reported; any other bad file fails
// the whole load.
func (l *Library) Reload(ctx context.Context) (*ReloadResult, error) {
	start := time.Now()
	belts, err := LoadBelts(l.fsys, BeltsFile)
	if err != nil {
		return nil, err
	}

	var (
		items   []content.Item
		rowErrs []string
	)
	err = fs.WalkDir(l.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			got, err := l.loadJSON(path, belts)
			if err != nil {
				return err
			}
			items = append(items, got...)
		case ".xlsx", ".csv":
			res, err := LoadSheet(l.fsys, path, belts, l.sheet)
			if err != nil {
				return err
			}
			items = append(items, res.Items...)
			for _, e := range res.Errors {
				rowErrs = append(rowErrs, path+": "+e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load curriculum: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return belt.Compare(items[i].RequiredRank, items[j].RequiredRank) > 0
	})
	catalog, err := content.NewCatalog(items)
	if err != nil {
		return nil, fmt.Errorf("load curriculum: %w", err)
	}

	l.mu.Lock()
	previous := ""
	if l.catalog != nil {
		previous = l.catalog.Version()
	}
	changed := previous != catalog.Version()
	l.belts = belts
	l.catalog = catalog
	l.loadedAt = time.Now().UTC()
	loadedAt := l.loadedAt
	l.mu.Unlock()

	for _, e := range rowErrs {
		l.log.Warn("curriculum row skipped", logger.String("detail", e))
	}
	l.log.Info("curriculum loaded",
		logger.String("version", catalog.Version()),
		logger.Int("items", catalog.Len()),
		logger.Int("belts", belts.Len()),
		logger.Bool("changed", changed),
		logger.Latency(time.Since(start)),
	)
	return &ReloadResult{
		Version:         catalog.Version(),
		PreviousVersion: previous,
		Items:           catalog.Len(),
		Changed:         changed,
		RowErrors:       rowErrs,
		LoadedAt:        loadedAt,
	}, nil
}

func (l *Library) loadJSON(path string, belts *belt.Catalog) ([]content.Item, error) {
	f, err := l.fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeJSON(f, belts, path)
}
