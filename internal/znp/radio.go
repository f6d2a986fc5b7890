package znp

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/mgmt"
)

// Association table relations counted by AssociationCount (parent through
// rx-on-idle FFD child).
const (
	relationParent         = 0x00
	relationChildFFDRxIdle = 0x04
)

// invalidNodeAddr marks an unused association table entry.
const invalidNodeAddr = 0xfffe

// Address modes for AF_DATA_REQUEST_EXT.
const (
	addrMode16Bit     = 0x02
	addrModeBroadcast = 0x0f
)

// zdoEndpoint carries ZDP frames.
const zdoEndpoint = 0x00

// DefaultNIBUpdateIDOffset is the offset of nwkUpdateId inside the NIB NV
// item of Z-Stack 3.x builds with packed structures.
const DefaultNIBUpdateIDOffset = 109

// DefaultBroadcastTimeout bounds a queued broadcast.
const DefaultBroadcastTimeout = 10 * time.Second

// RadioConfig configures the management primitives.
type RadioConfig struct {
	// NIBID and UpdateIDOffset locate nwkUpdateId in NV.
	NIBID            uint16
	UpdateIDOffset   uint8
	BroadcastTimeout time.Duration
	// ResetType is 0 for a hard (watchdog) reset, 1 for a soft reset.
	ResetType uint8
}

// requester is the part of Conn the radio uses.
type requester interface {
	Request(ctx context.Context, cmd CommandID, data []byte) (Frame, error)
	Send(cmd CommandID, data []byte) error
	Done() <-chan struct{}
}

// Radio implements mgmt.HAL and mgmt.ZDO over an MT link.
type Radio struct {
	conn   requester
	cfg    RadioConfig
	logger Logger

	restartMu    sync.Mutex
	restartTimer *time.Timer

	// bg tracks broadcast goroutines so Close can wait for them.
	bg sync.WaitGroup

	zdpSeq atomic.Uint32
}

var (
	_ mgmt.HAL = (*Radio)(nil)
	_ mgmt.ZDO = (*Radio)(nil)
)

// NewRadio creates a Radio on conn.
func NewRadio(conn *Conn, cfg RadioConfig, logger Logger) *Radio {
	return newRadio(conn, cfg, logger)
}

func newRadio(conn requester, cfg RadioConfig, logger Logger) *Radio {
	if logger == nil {
		logger = nopLogger{}
	}
	if cfg.NIBID == 0 {
		cfg.NIBID = NvNIB
	}
	if cfg.UpdateIDOffset == 0 {
		cfg.UpdateIDOffset = DefaultNIBUpdateIDOffset
	}
	if cfg.BroadcastTimeout <= 0 {
		cfg.BroadcastTimeout = DefaultBroadcastTimeout
	}
	return &Radio{conn: conn, cfg: cfg, logger: logger}
}

// request runs cmd and checks the response holds at least want bytes.
func (r *Radio) request(ctx context.Context, cmd CommandID, data []byte, want int) ([]byte, error) {
	f, err := r.conn.Request(ctx, cmd, data)
	if err != nil {
		return nil, err
	}
	if len(f.Data) < want {
		return nil, shortResponse(cmd, len(f.Data), want)
	}
	return f.Data, nil
}

// requestStatus runs a command whose response begins with a status byte.
func (r *Radio) requestStatus(ctx context.Context, op string, cmd CommandID, data []byte, want int) ([]byte, error) {
	resp, err := r.request(ctx, cmd, data, max(want, 1))
	if err != nil {
		return nil, err
	}
	if resp[0] != StatusSuccess {
		return nil, &mgmt.HALError{Op: op, Code: int(resp[0])}
	}
	return resp, nil
}

// Ping checks the coprocessor answers.
func (r *Radio) Ping(ctx context.Context) error {
	_, err := r.request(ctx, SysPing, nil, 2)
	return err
}

// Version describes the coprocessor firmware.
type Version struct {
	TransportRev uint8
	Product      uint8
	Major        uint8
	Minor        uint8
	Maint        uint8
	Revision     uint32
}

func (v Version) String() string {
	if v.Revision != 0 {
		return fmt.Sprintf("%d.%d.%d (%d)", v.Major, v.Minor, v.Maint, v.Revision)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Maint)
}

// Version returns the coprocessor's firmware version.
func (r *Radio) Version(ctx context.Context) (Version, error) {
	resp, err := r.request(ctx, SysVersion, nil, 5)
	if err != nil {
		return Version{}, err
	}
	v := Version{
		TransportRev: resp[0],
		Product:      resp[1],
		Major:        resp[2],
		Minor:        resp[3],
		Maint:        resp[4],
	}
	if len(resp) >= 9 {
		v.Revision = binary.LittleEndian.Uint32(resp[5:9])
	}
	return v, nil
}

// DelayRestart resets the coprocessor after seconds. A later call replaces
// a pending restart.
func (r *Radio) DelayRestart(_ context.Context, seconds int) error {
	select {
	case <-r.conn.Done():
		return ErrClosed
	default:
	}

	r.restartMu.Lock()
	defer r.restartMu.Unlock()

	if r.restartTimer != nil {
		r.restartTimer.Stop()
	}
	r.restartTimer = time.AfterFunc(time.Duration(seconds)*time.Second, func() {
		if err := r.conn.Send(SysResetReq, []byte{r.cfg.ResetType}); err != nil {
			r.logger.Error("radio reset failed", "error", err)
			return
		}
		r.logger.Info("radio reset requested", "type", r.cfg.ResetType)
	})
	return nil
}

// SetFactoryDefaults makes the coprocessor clear its network state and
// configuration on the next start.
func (r *Radio) SetFactoryDefaults(ctx context.Context) error {
	return r.WriteNvItem(ctx, mgmt.NvItem{
		ID:    NvStartupOption,
		Value: []byte{StartupClearConfig | StartupClearState},
	})
}

// AssociationCount returns the number of associated devices.
func (r *Radio) AssociationCount(ctx context.Context) (int, error) {
	resp, err := r.request(ctx, UtilAssocCount, []byte{relationParent, relationChildFFDRxIdle}, 2)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint16(resp)), nil
}

// AssociationInfo returns association table entry index.
func (r *Radio) AssociationInfo(ctx context.Context, index uint8) (mgmt.AssociatedDevice, error) {
	resp, err := r.request(ctx, UtilAssocFindDevice, []byte{index}, 8)
	if err != nil {
		return mgmt.AssociatedDevice{}, err
	}

	dev := mgmt.AssociatedDevice{
		ShortAddr:    binary.LittleEndian.Uint16(resp[0:2]),
		AddrIndex:    binary.LittleEndian.Uint16(resp[2:4]),
		NodeRelation: resp[4],
		DevStatus:    resp[5],
		AssocCnt:     resp[6],
		Age:          resp[7],
	}
	if dev.ShortAddr == invalidNodeAddr {
		return mgmt.AssociatedDevice{}, &mgmt.HALError{Op: "assoc find device", Code: StatusInvalidParameter}
	}
	return dev, nil
}

// ExtendedAddress resolves a short address through the address manager.
func (r *Radio) ExtendedAddress(ctx context.Context, shortAddr uint16) (uint64, error) {
	req := binary.LittleEndian.AppendUint16(nil, shortAddr)
	resp, err := r.request(ctx, UtilAddrMgrNwkAddrLookup, req, 8)
	if err != nil {
		return 0, err
	}
	addr := binary.LittleEndian.Uint64(resp[0:8])
	if addr == 0 {
		return 0, &mgmt.HALError{Op: "addr lookup", Code: StatusFailure}
	}
	return addr, nil
}

// NvInfo returns the network NV summary.
func (r *Radio) NvInfo(ctx context.Context) (mgmt.NvInfo, error) {
	resp, err := r.request(ctx, UtilGetNvInfo, nil, 16)
	if err != nil {
		return mgmt.NvInfo{}, err
	}
	return mgmt.NvInfo{
		Status:        resp[0],
		IEEEAddr:      binary.LittleEndian.Uint64(resp[1:9]),
		ScanChannels:  binary.LittleEndian.Uint32(resp[9:13]),
		PanID:         binary.LittleEndian.Uint16(resp[13:15]),
		SecurityLevel: resp[15],
	}, nil
}

// ReadNvItem reads item id from offset to its end.
func (r *Radio) ReadNvItem(ctx context.Context, id uint16, offset uint8) (mgmt.NvItem, error) {
	req := binary.LittleEndian.AppendUint16(nil, id)
	req = append(req, offset)

	resp, err := r.requestStatus(ctx, "nv read", SysOsalNvRead, req, 2)
	if err != nil {
		return mgmt.NvItem{}, err
	}
	n := int(resp[1])
	if len(resp) < 2+n {
		return mgmt.NvItem{}, shortResponse(SysOsalNvRead, len(resp), 2+n)
	}
	value := make([]byte, n)
	copy(value, resp[2:2+n])
	return mgmt.NvItem{ID: id, Offset: offset, Value: value, Status: resp[0]}, nil
}

// WriteNvItem writes item.Value at item.Offset.
func (r *Radio) WriteNvItem(ctx context.Context, item mgmt.NvItem) error {
	if len(item.Value) > MaxDataLen-4 {
		return fmt.Errorf("%w: nv value of %d bytes", ErrFrameTooLong, len(item.Value))
	}
	req := binary.LittleEndian.AppendUint16(nil, item.ID)
	req = append(req, item.Offset, uint8(len(item.Value)))
	req = append(req, item.Value...)

	_, err := r.requestStatus(ctx, "nv write", SysOsalNvWrite, req, 1)
	return err
}

// Channel returns the current logical channel.
func (r *Radio) Channel(ctx context.Context) (uint8, error) {
	resp, err := r.request(ctx, ZdoExtNwkInfo, nil, 24)
	if err != nil {
		return 0, err
	}
	return resp[23], nil
}

// NetworkUpdateID reads nwkUpdateId from the NIB.
func (r *Radio) NetworkUpdateID(ctx context.Context) (uint8, error) {
	item, err := r.ReadNvItem(ctx, r.cfg.NIBID, r.cfg.UpdateIDOffset)
	if err != nil {
		return 0, err
	}
	if len(item.Value) == 0 {
		return 0, shortResponse(SysOsalNvRead, 0, 1)
	}
	return item.Value[0], nil
}

// SetNetworkUpdateID persists nwkUpdateId to the NIB.
func (r *Radio) SetNetworkUpdateID(ctx context.Context, id uint8) error {
	return r.WriteNvItem(ctx, mgmt.NvItem{
		ID:     r.cfg.NIBID,
		Offset: r.cfg.UpdateIDOffset,
		Value:  []byte{id},
	})
}

// SendBroadcast queues frame for dst and returns. The request to the
// coprocessor runs on its own goroutine; onComplete receives its outcome.
//
// Each call takes the next ZDP sequence number.
func (r *Radio) SendBroadcast(dst uint16, radius uint8, frame mgmt.Frame, onComplete func(error)) error {
	select {
	case <-r.conn.Done():
		return ErrClosed
	default:
	}

	cmd, req, err := zdoRequest(dst, radius, uint8(r.zdpSeq.Add(1)), frame)
	if err != nil {
		return err
	}

	r.bg.Add(1)
	go func() {
		defer r.bg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.BroadcastTimeout)
		defer cancel()

		_, err := r.requestStatus(ctx, "zdo broadcast", cmd, req, 1)
		if err != nil {
			r.logger.Warn("zdo broadcast failed", "cmd", cmd.String(), "dst", fmt.Sprintf("0x%04x", dst), "error", err)
		} else {
			r.logger.Debug("zdo broadcast queued", "cmd", cmd.String(), "dst", fmt.Sprintf("0x%04x", dst), "radius", radius)
		}
		if onComplete != nil {
			onComplete(err)
		}
	}()
	return nil
}

// zdoRequest wraps a ZDP frame in an AF_DATA_REQUEST_EXT to the ZDO
// endpoint, so every field of the frame goes on the air unchanged. seq is
// used as both the AF transaction id and the ZDP sequence number.
func zdoRequest(dst uint16, radius, seq uint8, frame mgmt.Frame) (CommandID, []byte, error) {
	if frame.ClusterID() != mgmt.ClusterMgmtNwkUpdateReq {
		return 0, nil, fmt.Errorf("%w: 0x%04x", ErrUnsupportedCluster, frame.ClusterID())
	}

	payload, err := frame.MarshalBinary()
	if err != nil {
		return 0, nil, fmt.Errorf("encoding zdp frame: %w", err)
	}
	if len(payload) < 5 {
		return 0, nil, fmt.Errorf("%w: mgmt nwk update payload of %d bytes", ErrShortResponse, len(payload))
	}

	mode := byte(addrMode16Bit)
	if dst >= mgmt.BroadcastRxOnWhenIdle {
		mode = addrModeBroadcast
	}

	req := make([]byte, 0, 21+len(payload))
	req = append(req, mode)
	req = binary.LittleEndian.AppendUint64(req, uint64(dst))
	req = append(req, zdoEndpoint)
	req = binary.LittleEndian.AppendUint16(req, 0x0000) // dst pan id, unused for a local network
	req = append(req, zdoEndpoint)
	req = binary.LittleEndian.AppendUint16(req, frame.ClusterID())
	req = append(req, seq, 0x00, radius) // trans id, options, radius
	req = binary.LittleEndian.AppendUint16(req, uint16(1+len(payload)))
	req = append(req, seq)
	req = append(req, payload...)
	return AfDataRequestExt, req, nil
}

// Close cancels a pending restart and waits for queued broadcasts.
func (r *Radio) Close() {
	r.restartMu.Lock()
	if r.restartTimer != nil {
		r.restartTimer.Stop()
	}
	r.restartMu.Unlock()
	r.bg.Wait()
}
