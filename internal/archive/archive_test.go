package archive

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-zigbee/internal/mgmt"
	"github.com/nerrad567/gray-logic-zigbee/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "archive.db")})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestUpsert_InsertsAndRefreshes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	first := Device{IEEEAddr: "00124b0001020304", NwkAddr: 0x1a2b, AssocCnt: 1, LastSeen: t0}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	again := Device{IEEEAddr: "00124b0001020304", NwkAddr: 0x3c4d, AssocCnt: 2, Age: 7, LastSeen: t1}
	if err := repo.Upsert(ctx, again); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	devices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("List() returned %d devices, want 1", len(devices))
	}
	d := devices[0]
	if d.NwkAddr != 0x3c4d || d.AssocCnt != 2 || d.Age != 7 {
		t.Errorf("device = %+v, want refreshed fields", d)
	}
	if !d.FirstSeen.Equal(t0) {
		t.Errorf("FirstSeen = %v, want %v", d.FirstSeen, t0)
	}
	if !d.LastSeen.Equal(t1) {
		t.Errorf("LastSeen = %v, want %v", d.LastSeen, t1)
	}
}

func TestUpsert_RequiresIEEE(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Upsert(context.Background(), Device{NwkAddr: 1}); err == nil {
		t.Error("Upsert() without ieee address should fail")
	}
}

func TestList_OrderAndEmpty(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	devices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if devices == nil || len(devices) != 0 {
		t.Fatalf("List() on empty table = %v, want empty non-nil slice", devices)
	}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, ieee := range []string{"0000000000000001", "0000000000000002", "0000000000000003"} {
		if err := repo.Upsert(ctx, Device{IEEEAddr: ieee, LastSeen: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Upsert(%s) error = %v", ieee, err)
		}
	}

	devices, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var got []string
	for _, d := range devices {
		got = append(got, d.IEEEAddr)
	}
	if want := "0000000000000003,0000000000000002,0000000000000001"; strings.Join(got, ",") != want {
		t.Errorf("order = %v, want %s", got, want)
	}
}

func TestRecorder(t *testing.T) {
	repo := newTestRepo(t)
	rec := NewRecorder(repo)
	ctx := context.Background()

	dev := mgmt.AssociatedDevice{ShortAddr: 0xbeef, AddrIndex: 3, NodeRelation: 1, DevStatus: 0x02, AssocCnt: 1, Age: 4}
	if err := rec.Record(ctx, dev, 0x00124b00deadbeef); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	devices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(devices) != 1 || devices[0].IEEEAddr != "00124b00deadbeef" || devices[0].NwkAddr != 0xbeef {
		t.Fatalf("List() = %+v", devices)
	}

	if err := rec.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	devices, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("List() after Clear = %+v, want empty", devices)
	}
}

func TestDevice_MarshalJSON(t *testing.T) {
	d := Device{IEEEAddr: "00124b0001020304", NwkAddr: 0x00af, DevStatus: 0x02}
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, want := range []string{`"nwkAddr":"00af"`, `"devStatus":"02"`, `"ieeeAddr":"00124b0001020304"`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("json %s missing %s", b, want)
		}
	}
}
