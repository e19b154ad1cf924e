package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-ledger-api/internal/dto"
	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/internal/models"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	hits    int
	failGet error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet != nil {
		return c.failGet
	}
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	c.hits++
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

// populatedLedger adds a driver, a helper that is later removed and a
// transferred driver on top of the two seeded supervisors.
func populatedLedger(t *testing.T, opts ...ledger.Option) *ledger.Store {
	t.Helper()
	store, _ := openTestLedger(t, withSecondCell(seededLedger()), opts...)
	roster := newRosterService(store)
	ctx := context.Background()

	driver := driverRequest()
	driver.Name = "Asif Mehmood"
	driver.VehicleRegNo = "LES-1234"
	_, err := roster.Add(ctx, driver, "admin")
	require.NoError(t, err)

	helper := driverRequest()
	helper.CNIC = "3520212345679"
	helper.Role = models.RoleHelper
	helper.Name = "Nadeem"
	h, err := roster.Add(ctx, helper, "admin")
	require.NoError(t, err)
	_, err = roster.Remove(ctx, h.PersonID, dto.RemoveRequest{Notes: "left"}, "admin")
	require.NoError(t, err)

	mover := driverRequest()
	mover.CNIC = "3520212345680"
	mover.Name = "Tariq"
	m, err := roster.Add(ctx, mover, "admin")
	require.NoError(t, err)
	_, err = roster.Transfer(ctx, m.PersonID, dto.TransferRequest{PPSZ: "PP-111", CCUC: "CC-200"}, "admin")
	require.NoError(t, err)
	return store
}

func names(items []models.RecordVersion) []string {
	out := make([]string, 0, len(items))
	for _, v := range items {
		out = append(out, v.Name)
	}
	return out
}

func TestListUserSeesOnlyActiveCurrentVersions(t *testing.T) {
	store := populatedLedger(t)
	svc := NewQueryService(store, nil, zap.NewNop())

	items, page, err := svc.List(context.Background(), dto.RosterQuery{Status: models.StatusRemoved, AllVersions: true}, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, 4, page.TotalCount)
	assert.ElementsMatch(t, []string{"Imran Ali", "Bilal Khan", "Asif Mehmood", "Tariq"}, names(items))
	for _, v := range items {
		assert.True(t, v.IsActive())
	}
}

func TestListAdminFilters(t *testing.T) {
	store := populatedLedger(t)
	svc := NewQueryService(store, nil, zap.NewNop())
	ctx := context.Background()

	removed, _, err := svc.List(ctx, dto.RosterQuery{Status: models.StatusRemoved}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nadeem"}, names(removed))

	all, page, err := svc.List(ctx, dto.RosterQuery{AllVersions: true}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, store.Stats().Versions, page.TotalCount)
	assert.Len(t, all, 7)

	byUnit, _, err := svc.List(ctx, dto.RosterQuery{PPSZ: "pp-111"}, models.RoleAdmin)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Bilal Khan", "Tariq"}, names(byUnit))

	byVehicle, _, err := svc.List(ctx, dto.RosterQuery{Search: "les-12"}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{"Asif Mehmood"}, names(byVehicle))

	byCNIC, _, err := svc.List(ctx, dto.RosterQuery{Search: "3520212345680"}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tariq"}, names(byCNIC))

	none, page, err := svc.List(ctx, dto.RosterQuery{Area: models.AreaSadar}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Zero(t, page.TotalCount)
}

func TestListPaginates(t *testing.T) {
	store := populatedLedger(t)
	svc := NewQueryService(store, nil, zap.NewNop())

	items, page, err := svc.List(context.Background(), dto.RosterQuery{Page: 2, PageSize: 3}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.PageSize)

	_, page, err = svc.List(context.Background(), dto.RosterQuery{PageSize: 10000}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, page.PageSize)
}

func TestListIsCachedPerRevision(t *testing.T) {
	store, _ := openTestLedger(t, seededLedger())
	repo := newMemoryCache()
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	svc := NewQueryService(store, cache, zap.NewNop())
	ctx := context.Background()

	first, _, err := svc.List(ctx, dto.RosterQuery{}, models.RoleUser)
	require.NoError(t, err)
	second, _, err := svc.List(ctx, dto.RosterQuery{}, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.hits)

	_, err = newRosterService(store).Add(ctx, driverRequest(), "admin")
	require.NoError(t, err)

	third, page, err := svc.List(ctx, dto.RosterQuery{}, models.RoleUser)
	require.NoError(t, err)
	assert.Len(t, third, 2)
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, 1, repo.hits)
}

func TestListFallsBackWhenCacheFails(t *testing.T) {
	store, _ := openTestLedger(t, seededLedger())
	repo := newMemoryCache()
	repo.failGet = errors.New("connection refused")
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	svc := NewQueryService(store, cache, zap.NewNop())

	items, _, err := svc.List(context.Background(), dto.RosterQuery{}, models.RoleUser)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestPersonResolvesEveryReference(t *testing.T) {
	store := populatedLedger(t)
	svc := NewQueryService(store, nil, zap.NewNop())
	ctx := context.Background()

	byCNIC, err := svc.Person(ctx, "3520212345680", models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "CC-200", byCNIC.Current.CCUC)
	require.Len(t, byCNIC.History, 2)

	byOldRecord, err := svc.Person(ctx, byCNIC.History[0].RecordID, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, byCNIC.Current.RecordID, byOldRecord.Current.RecordID)

	byPerson, err := svc.Person(ctx, byCNIC.Current.PersonID, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, byCNIC.Current, byPerson.Current)

	_, err = svc.Person(ctx, "3520212345679", models.RoleUser)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	removed, err := svc.Person(ctx, "3520212345679", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRemoved, removed.Current.Status)

	_, err = svc.Person(ctx, "W9999", models.RoleAdmin)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestAuditListing(t *testing.T) {
	store := populatedLedger(t)
	svc := NewQueryService(store, nil, zap.NewNop())
	ctx := context.Background()

	transfers, page, err := svc.Audit(ctx, dto.AuditQuery{Action: "TRANSFER"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, "cc_uc", transfers[0].Field)
	assert.Equal(t, "pp_sz", transfers[1].Field)

	_, _, err = svc.Audit(ctx, dto.AuditQuery{Action: "rename"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	stats := svc.Stats()
	assert.Equal(t, 5, stats.Persons)
	assert.Equal(t, 7, stats.Versions)
}
