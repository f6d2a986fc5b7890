package audit

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-zigbee/internal/mgmt"
	"github.com/nerrad567/gray-logic-zigbee/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "audit.db")})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestCreate_GeneratesIDAndTimestamp(t *testing.T) {
	repo := newTestRepo(t)

	log := &AuditLog{Action: mgmt.EventChannelChanged, EntityType: "radio", Source: SourceAPI}
	if err := repo.Create(context.Background(), log); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.HasPrefix(log.ID, "aud-") || len(log.ID) != len("aud-")+8 {
		t.Errorf("ID = %q, want aud-xxxxxxxx", log.ID)
	}
	if log.CreatedAt.IsZero() {
		t.Error("CreatedAt was not set")
	}
}

func TestList_FiltersAndPaginates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []AuditLog{
		{Action: mgmt.EventNvWritten, EntityID: "zigbee_module/nv_item", Source: SourceAPI, Status: 0},
		{Action: mgmt.EventChannelChanged, EntityID: "zigbee_module/logical_channel", Source: SourceMQTT, UserID: "ops"},
		{Action: mgmt.EventNvWritten, EntityID: "zigbee_module/nv_item", Source: SourceMQTT, Status: 10},
		{Action: mgmt.EventRadioRestart, EntityID: "rsserial/restart", Source: SourceAPI},
	}
	for i := range entries {
		entries[i].EntityType = "radio"
		entries[i].CreatedAt = base.Add(time.Duration(i) * 500 * time.Millisecond)
		entries[i].Details = map[string]any{"seq": i}
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantFirst string
	}{
		{"all newest first", Filter{}, 4, mgmt.EventRadioRestart},
		{"by action", Filter{Action: mgmt.EventNvWritten}, 2, mgmt.EventNvWritten},
		{"by source", Filter{Source: SourceMQTT}, 2, mgmt.EventNvWritten},
		{"by topic", Filter{EntityID: "zigbee_module/logical_channel"}, 1, mgmt.EventChannelChanged},
		{"offset", Filter{Limit: 1, Offset: 1}, 4, mgmt.EventNvWritten},
		{"since", Filter{Since: base.Add(time.Second)}, 2, mgmt.EventRadioRestart},
		{"since and action", Filter{Action: mgmt.EventNvWritten, Since: base.Add(time.Second)}, 1, mgmt.EventNvWritten},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", res.Total, tt.wantTotal)
			}
			if len(res.Logs) == 0 || res.Logs[0].Action != tt.wantFirst {
				t.Fatalf("first log = %+v, want action %s", res.Logs, tt.wantFirst)
			}
		})
	}

	t.Run("round trips columns", func(t *testing.T) {
		res, err := repo.List(ctx, Filter{Source: SourceMQTT, Action: mgmt.EventChannelChanged})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		got := res.Logs[0]
		if got.UserID != "ops" || got.Details["seq"] != float64(1) || !got.CreatedAt.Equal(entries[1].CreatedAt) {
			t.Errorf("log = %+v", got)
		}
	})

	t.Run("limit clamped", func(t *testing.T) {
		res, err := repo.List(ctx, Filter{Limit: 10_000, Offset: -3})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if res.Limit != maxPageSize || res.Offset != 0 {
			t.Errorf("Limit/Offset = %d/%d, want %d/0", res.Limit, res.Offset, maxPageSize)
		}
	})
}

// memRepo is an in-memory Repository.
type memRepo struct {
	mu   sync.Mutex
	logs []AuditLog
	err  error
}

func (m *memRepo) Create(_ context.Context, log *AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, *log)
	return nil
}

func (m *memRepo) List(context.Context, Filter) (*ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &ListResult{Logs: append([]AuditLog(nil), m.logs...), Total: len(m.logs)}, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func TestRecorder_PersistsWithActor(t *testing.T) {
	repo := &memRepo{}
	rec := NewRecorder(repo, nopLogger{}, 4)

	ctx := WithActor(context.Background(), SourceAPI, "installer")
	rec.Notify(ctx, mgmt.Event{
		Type:   mgmt.EventChannelChanged,
		Topic:  "zigbee_module/logical_channel",
		Status: 0,
		Data:   map[string]any{"channel": 15},
	})
	rec.Notify(context.Background(), mgmt.Event{Type: mgmt.EventRadioRestart, Topic: "rsserial/restart"})
	rec.Close()

	if len(repo.logs) != 2 {
		t.Fatalf("persisted %d logs, want 2", len(repo.logs))
	}
	first := repo.logs[0]
	if first.Source != SourceAPI || first.UserID != "installer" || first.EntityType != "radio" {
		t.Errorf("first log = %+v", first)
	}
	if first.Details["channel"] != 15 {
		t.Errorf("Details = %v", first.Details)
	}
	if repo.logs[1].Source != "unknown" {
		t.Errorf("untagged source = %q, want unknown", repo.logs[1].Source)
	}
}

func TestRecorder_NotifyAfterCloseIsDropped(t *testing.T) {
	repo := &memRepo{}
	rec := NewRecorder(repo, nopLogger{}, 1)
	rec.Close()
	rec.Close()

	rec.Notify(context.Background(), mgmt.Event{Type: mgmt.EventNvWritten})

	if len(repo.logs) != 0 {
		t.Errorf("persisted %d logs after Close, want 0", len(repo.logs))
	}
}

func TestRecorder_RepositoryErrorDoesNotStop(t *testing.T) {
	repo := &memRepo{err: errors.New("disk full")}
	rec := NewRecorder(repo, nopLogger{}, 2)
	rec.Notify(context.Background(), mgmt.Event{Type: mgmt.EventNvWritten})
	rec.Close()
}
