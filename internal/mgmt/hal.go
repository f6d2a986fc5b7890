package mgmt

import (
	"context"
	"encoding/binary"
)

// HAL is the set of radio primitives the handlers consume.
//
// Implementations return a *HALError when the radio answers with a non-zero
// status so the code reaches the caller unchanged.
type HAL interface {
	DelayRestart(ctx context.Context, seconds int) error
	SetFactoryDefaults(ctx context.Context) error
	AssociationCount(ctx context.Context) (int, error)
	AssociationInfo(ctx context.Context, index uint8) (AssociatedDevice, error)
	ExtendedAddress(ctx context.Context, shortAddr uint16) (uint64, error)
	NvInfo(ctx context.Context) (NvInfo, error)
	ReadNvItem(ctx context.Context, id uint16, offset uint8) (NvItem, error)
	WriteNvItem(ctx context.Context, item NvItem) error
	Channel(ctx context.Context) (uint8, error)
	NetworkUpdateID(ctx context.Context) (uint8, error)
	SetNetworkUpdateID(ctx context.Context, id uint8) error
}

// ZDO submits Zigbee Device Object frames to the network.
//
// SendBroadcast returns once the frame is queued. onComplete runs later on a
// goroutine owned by the implementation; a non-nil error from SendBroadcast
// means the frame was never queued and onComplete will not run.
type ZDO interface {
	SendBroadcast(dst uint16, radius uint8, frame Frame, onComplete func(error)) error
}

// Frame is a ZDP command payload.
type Frame interface {
	ClusterID() uint16
	MarshalBinary() ([]byte, error)
}

// Broadcast addressing for network-wide management frames.
const (
	BroadcastRxOnWhenIdle uint16 = 0xfffd
	BroadcastAll          uint16 = 0xfffe
	MaxRadius             uint8  = 0xff
)

// ClusterMgmtNwkUpdateReq is the ZDP cluster of Mgmt_NWK_Update_req.
const ClusterMgmtNwkUpdateReq uint16 = 0x0038

// ScanDurationChannelChange asks receivers to switch channel instead of
// scanning.
const ScanDurationChannelChange uint8 = 0xfe

// NwkUpdateFrame is the Mgmt_NWK_Update_req used to move the network to a new
// channel.
type NwkUpdateFrame struct {
	ChannelMask  uint32
	ScanDuration uint8
	UpdateID     uint8
	ManagerAddr  uint16
}

// ClusterID implements Frame.
func (f NwkUpdateFrame) ClusterID() uint16 { return ClusterMgmtNwkUpdateReq }

// MarshalBinary encodes the ZDP payload. Only the channel change form
// (scan duration 0xfe or 0xff) carries the update id and manager address.
func (f NwkUpdateFrame) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 8)
	buf = binary.LittleEndian.AppendUint32(buf, f.ChannelMask)
	buf = append(buf, f.ScanDuration)
	if f.ScanDuration >= ScanDurationChannelChange {
		buf = append(buf, f.UpdateID)
		buf = binary.LittleEndian.AppendUint16(buf, f.ManagerAddr)
	}
	return buf, nil
}
