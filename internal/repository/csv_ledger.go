package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/internal/models"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
	"github.com/noah-isme/roster-ledger-api/pkg/export"
	"github.com/noah-isme/roster-ledger-api/pkg/storage"
	"github.com/noah-isme/roster-ledger-api/pkg/tabular"
)

// File names of the CSV ledger.
const (
	ManifestFile = "CURRENT"
	RecordsFile  = "master.csv"
	AuditFile    = "history.csv"

	generationPrefix = "gen-"
)

// CSVLedger stores both tables as CSV files inside numbered generation
// directories. A commit writes a complete new generation and then replaces
// the CURRENT manifest, so the two tables always switch together. The data
// directory stays locked until Close, so only one process writes it.
type CSVLedger struct {
	store    *storage.LocalStorage
	lock     *storage.DirLock
	exporter *export.CSVExporter
	logger   *zap.Logger
	save     func(name string, data []byte) error

	mu         sync.Mutex
	generation int
	versions   []models.RecordVersion
	audit      []models.AuditEntry
}

// NewCSVLedger prepares dir for the ledger.
func NewCSVLedger(dir string, logger *zap.Logger) (*CSVLedger, error) {
	store, err := storage.NewLocalStorage(dir)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	lock, err := store.LockDir()
	if err != nil {
		if errors.Is(err, storage.ErrLocked) {
			return nil, appErrors.WrapAs(appErrors.ErrConcurrency, err, "ledger data directory is in use by another process")
		}
		return nil, err
	}
	l := &CSVLedger{store: store, lock: lock, exporter: export.NewCSVExporter(), logger: logger}
	l.save = func(name string, data []byte) error {
		_, err := store.Save(name, data)
		return err
	}
	return l, nil
}

// Load reads the published generation. Without a manifest, plain
// master.csv/history.csv files in the data directory are adopted as the
// initial ledger. Unpublished generations left by a crash are removed.
func (l *CSVLedger) Load(ctx context.Context) (ledger.Batch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	generation, err := l.readManifest()
	if err != nil {
		return ledger.Batch{}, err
	}

	dir := ""
	if generation > 0 {
		dir = generationDir(generation)
	} else if l.store.Exists(RecordsFile) || l.store.Exists(AuditFile) {
		l.logger.Info("adopting unversioned ledger files", zap.String("dir", l.store.Path("")))
	}

	versions, err := l.readRecords(dir)
	if err != nil {
		return ledger.Batch{}, err
	}
	audit, err := l.readAudit(dir)
	if err != nil {
		return ledger.Batch{}, err
	}

	l.generation = generation
	l.versions = versions
	l.audit = audit
	l.removeStale()

	return ledger.Batch{
		Versions: append([]models.RecordVersion(nil), versions...),
		Audit:    append([]models.AuditEntry(nil), audit...),
	}, nil
}

// Append publishes a generation holding the current tables plus batch.
func (l *CSVLedger) Append(ctx context.Context, batch ledger.Batch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	versions := append(append(make([]models.RecordVersion, 0, len(l.versions)+len(batch.Versions)), l.versions...), batch.Versions...)
	audit := append(append(make([]models.AuditEntry, 0, len(l.audit)+len(batch.Audit)), l.audit...), batch.Audit...)
	if err := l.publish(ctx, versions, audit); err != nil {
		return err
	}
	l.versions = versions
	l.audit = audit
	return nil
}

// Purge publishes a generation with no records and only seed in the audit table.
func (l *CSVLedger) Purge(ctx context.Context, seed models.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	audit := []models.AuditEntry{seed}
	if err := l.publish(ctx, nil, audit); err != nil {
		return err
	}
	l.versions = nil
	l.audit = audit
	return nil
}

// Close releases the data directory lock.
func (l *CSVLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lock.Unlock()
}

// Generation returns the published generation number.
func (l *CSVLedger) Generation() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

func (l *CSVLedger) publish(ctx context.Context, versions []models.RecordVersion, audit []models.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if published := l.manifestName(); published != generationName(l.generation) {
		return appErrors.Clonef(appErrors.ErrConflict, "ledger was changed on disk (now %q), reopen it", published)
	}
	next := l.generation + 1
	dir := generationDir(next)

	tables := ledger.Batch{Versions: versions, Audit: audit}
	records, err := l.exporter.Render(tables.RecordsTable())
	if err != nil {
		return err
	}
	history, err := l.exporter.Render(tables.AuditTable())
	if err != nil {
		return err
	}
	if err := l.save(dir+"/"+RecordsFile, records); err != nil {
		l.discard(dir)
		return fmt.Errorf("write records table: %w", err)
	}
	if err := l.save(dir+"/"+AuditFile, history); err != nil {
		l.discard(dir)
		return fmt.Errorf("write audit table: %w", err)
	}
	if err := l.save(ManifestFile, []byte(dir+"\n")); err != nil {
		if l.manifestName() != dir {
			l.discard(dir)
			return fmt.Errorf("publish generation %d: %w", next, err)
		}
		// the rename landed; only the directory sync failed
		l.logger.Warn("ledger generation published without directory sync", zap.Int("generation", next), zap.Error(err))
	}

	previous := l.generation
	l.generation = next
	if previous > 0 {
		if err := l.store.Delete(generationDir(previous)); err != nil {
			l.logger.Warn("failed to remove old ledger generation", zap.Int("generation", previous), zap.Error(err))
		}
	}
	return nil
}

func (l *CSVLedger) discard(dir string) {
	if err := l.store.Delete(dir); err != nil {
		l.logger.Warn("failed to remove unpublished generation", zap.String("dir", dir), zap.Error(err))
	}
}

// manifestName returns the generation CURRENT names on disk, or "" when
// there is no readable manifest.
func (l *CSVLedger) manifestName() string {
	raw, err := os.ReadFile(l.store.Path(ManifestFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func (l *CSVLedger) readManifest() (int, error) {
	if !l.store.Exists(ManifestFile) {
		return 0, nil
	}
	f, err := l.store.Open(ManifestFile)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck
	raw, err := io.ReadAll(f)
	if err != nil {
		return 0, fmt.Errorf("read manifest: %w", err)
	}
	name := strings.TrimSpace(string(raw))
	n, err := strconv.Atoi(strings.TrimPrefix(name, generationPrefix))
	if err != nil || !strings.HasPrefix(name, generationPrefix) {
		return 0, fmt.Errorf("corrupt manifest %q", name)
	}
	if !l.store.Exists(name) {
		return 0, fmt.Errorf("manifest names missing generation %s", name)
	}
	return n, nil
}

// removeStale deletes generation directories other than the published one.
func (l *CSVLedger) removeStale() {
	entries, err := os.ReadDir(l.store.Path(""))
	if err != nil {
		return
	}
	keep := generationDir(l.generation)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), generationPrefix) || e.Name() == keep {
			continue
		}
		l.logger.Warn("removing unpublished ledger generation", zap.String("dir", e.Name()))
		l.discard(e.Name())
	}
}

func (l *CSVLedger) readTable(dir, name string, headers []string) (*tabular.Table, error) {
	path := name
	if dir != "" {
		path = dir + "/" + name
	}
	if !l.store.Exists(path) {
		return &tabular.Table{}, nil
	}
	raw, err := os.ReadFile(l.store.Path(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	table, err := tabular.ReadCSVVerbatim(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	table.Ensure(headers)
	return table, nil
}

func (l *CSVLedger) readRecords(dir string) ([]models.RecordVersion, error) {
	table, err := l.readTable(dir, RecordsFile, models.RecordHeaders)
	if err != nil {
		return nil, err
	}
	out := make([]models.RecordVersion, 0, len(table.Rows))
	for _, row := range table.Rows {
		out = append(out, models.RecordFromRow(row))
	}
	return out, nil
}

func (l *CSVLedger) readAudit(dir string) ([]models.AuditEntry, error) {
	table, err := l.readTable(dir, AuditFile, models.AuditHeaders)
	if err != nil {
		return nil, err
	}
	out := make([]models.AuditEntry, 0, len(table.Rows))
	for _, row := range table.Rows {
		out = append(out, models.AuditFromRow(row))
	}
	return out, nil
}

func generationDir(n int) string {
	return fmt.Sprintf("%s%06d", generationPrefix, n)
}

// generationName is generationDir with "" for the unpublished generation 0.
func generationName(n int) string {
	if n == 0 {
		return ""
	}
	return generationDir(n)
}
