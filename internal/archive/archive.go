// Package archive persists the devices returned by association lookups so
// they can be listed without talking to the radio.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/mgmt"
)

// Device is one archived association table entry. IEEEAddr is the
// sixteen-digit hex form used as the primary key.
type Device struct {
	IEEEAddr     string
	NwkAddr      uint16
	AddrIndex    uint16
	DevStatus    uint8
	NodeRelation uint8
	AssocCnt     uint8
	Age          uint8
	FirstSeen    time.Time
	LastSeen     time.Time
}

// FromAssociation builds the archive record for a lookup result.
func FromAssociation(dev mgmt.AssociatedDevice, ieeeAddr uint64) Device {
	return Device{
		IEEEAddr:     mgmt.Hex64(ieeeAddr),
		NwkAddr:      dev.ShortAddr,
		AddrIndex:    dev.AddrIndex,
		DevStatus:    dev.DevStatus,
		NodeRelation: dev.NodeRelation,
		AssocCnt:     dev.AssocCnt,
		Age:          dev.Age,
	}
}

// MarshalJSON renders addresses in hex, like the management responses.
func (d Device) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		IEEEAddr     string    `json:"ieeeAddr"`
		NwkAddr      string    `json:"nwkAddr"`
		AddrIndex    uint16    `json:"addrIndex"`
		DevStatus    string    `json:"devStatus"`
		NodeRelation uint8     `json:"nodeRelation"`
		AssocCnt     uint8     `json:"assocCnt"`
		Age          uint8     `json:"age"`
		FirstSeen    time.Time `json:"firstSeen"`
		LastSeen     time.Time `json:"lastSeen"`
	}{
		IEEEAddr:     d.IEEEAddr,
		NwkAddr:      mgmt.Hex16(d.NwkAddr),
		AddrIndex:    d.AddrIndex,
		DevStatus:    mgmt.Hex8(d.DevStatus),
		NodeRelation: d.NodeRelation,
		AssocCnt:     d.AssocCnt,
		Age:          d.Age,
		FirstSeen:    d.FirstSeen,
		LastSeen:     d.LastSeen,
	})
}

// Repository stores archived devices.
type Repository interface {
	Upsert(ctx context.Context, dev Device) error
	List(ctx context.Context) ([]Device, error)
	Clear(ctx context.Context) error
}

// SQLiteRepository keeps devices in the zigbee_devices table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository over an open database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Upsert inserts dev, or refreshes the existing row for its IEEE address.
// FirstSeen is kept from the first insert.
func (r *SQLiteRepository) Upsert(ctx context.Context, dev Device) error {
	if dev.IEEEAddr == "" {
		return fmt.Errorf("archiving device: ieee address is required")
	}
	if dev.LastSeen.IsZero() {
		dev.LastSeen = r.now().UTC()
	}
	seen := dev.LastSeen.Format(time.RFC3339)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO zigbee_devices
			(ieee_addr, nwk_addr, addr_index, dev_status, node_relation, assoc_cnt, age, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ieee_addr) DO UPDATE SET
			nwk_addr      = excluded.nwk_addr,
			addr_index    = excluded.addr_index,
			dev_status    = excluded.dev_status,
			node_relation = excluded.node_relation,
			assoc_cnt     = excluded.assoc_cnt,
			age           = excluded.age,
			last_seen     = excluded.last_seen`,
		dev.IEEEAddr, dev.NwkAddr, dev.AddrIndex, dev.DevStatus,
		dev.NodeRelation, dev.AssocCnt, dev.Age, seen, seen,
	)
	if err != nil {
		return fmt.Errorf("archiving device %s: %w", dev.IEEEAddr, err)
	}
	return nil
}

// List returns every archived device, most recently seen first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ieee_addr, nwk_addr, addr_index, dev_status, node_relation, assoc_cnt, age, first_seen, last_seen
		FROM zigbee_devices
		ORDER BY last_seen DESC, ieee_addr`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		var (
			d               Device
			first, lastSeen string
		)
		if err := rows.Scan(&d.IEEEAddr, &d.NwkAddr, &d.AddrIndex, &d.DevStatus,
			&d.NodeRelation, &d.AssocCnt, &d.Age, &first, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		if d.FirstSeen, err = time.Parse(time.RFC3339, first); err != nil {
			return nil, fmt.Errorf("parsing first_seen %q: %w", first, err)
		}
		if d.LastSeen, err = time.Parse(time.RFC3339, lastSeen); err != nil {
			return nil, fmt.Errorf("parsing last_seen %q: %w", lastSeen, err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Clear removes every archived device.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM zigbee_devices"); err != nil {
		return fmt.Errorf("clearing devices: %w", err)
	}
	return nil
}

// Recorder adapts a Repository to mgmt.DeviceArchive.
type Recorder struct {
	repo Repository
}

// NewRecorder wraps repo for use by the management service.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record implements mgmt.DeviceArchive.
func (r *Recorder) Record(ctx context.Context, dev mgmt.AssociatedDevice, ieeeAddr uint64) error {
	return r.repo.Upsert(ctx, FromAssociation(dev, ieeeAddr))
}

// Clear implements mgmt.DeviceArchive.
func (r *Recorder) Clear(ctx context.Context) error {
	return r.repo.Clear(ctx)
}

var _ mgmt.DeviceArchive = (*Recorder)(nil)
