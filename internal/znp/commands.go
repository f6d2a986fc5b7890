package znp

import "fmt"

// CommandID is CMD0<<8 | CMD1.
type CommandID uint16

// Frame types, as encoded in the top three bits of CMD0.
const (
	TypePoll = 0x00
	TypeSREQ = 0x20
	TypeAREQ = 0x40
	TypeSRSP = 0x60
)

// Subsystems, as encoded in the low five bits of CMD0.
const (
	SubsysRES  = 0x00
	SubsysSYS  = 0x01
	SubsysAF   = 0x04
	SubsysZDO  = 0x05
	SubsysUTIL = 0x07
)

// MT commands used by the management plane.
const (
	SysResetReq    CommandID = 0x4100
	SysResetInd    CommandID = 0x4180
	SysPing        CommandID = 0x2101
	SysVersion     CommandID = 0x2102
	SysOsalNvRead  CommandID = 0x2108
	SysOsalNvWrite CommandID = 0x2109

	UtilGetDeviceInfo        CommandID = 0x2700
	UtilGetNvInfo            CommandID = 0x2701
	UtilAddrMgrNwkAddrLookup CommandID = 0x2741
	UtilAssocCount           CommandID = 0x2748
	UtilAssocFindDevice      CommandID = 0x2749

	AfDataRequestExt CommandID = 0x2402

	ZdoMgmtNwkUpdateReq CommandID = 0x2537
	ZdoExtNwkInfo       CommandID = 0x2550
)

// NV item ids.
const (
	NvStartupOption uint16 = 0x0003
	NvNIB           uint16 = 0x0021
	NvPanID         uint16 = 0x0083
	NvChannelList   uint16 = 0x0084
)

// Startup option bits written to NvStartupOption.
const (
	StartupClearConfig uint8 = 0x01
	StartupClearState  uint8 = 0x02
)

// MT status codes.
const (
	StatusSuccess          = 0x00
	StatusFailure          = 0x01
	StatusInvalidParameter = 0x02
	StatusNvItemUninit     = 0x09
	StatusNvOperFailed     = 0x0a
	StatusNvBadItemLength  = 0x0c
	StatusMemError         = 0x10
	StatusBufferFull       = 0x11
)

var commandNames = map[CommandID]string{
	SysResetReq:              "SYS_RESET_REQ",
	SysResetInd:              "SYS_RESET_IND",
	SysPing:                  "SYS_PING",
	SysVersion:               "SYS_VERSION",
	SysOsalNvRead:            "SYS_OSAL_NV_READ",
	SysOsalNvWrite:           "SYS_OSAL_NV_WRITE",
	UtilGetDeviceInfo:        "UTIL_GET_DEVICE_INFO",
	UtilGetNvInfo:            "UTIL_GET_NV_INFO",
	UtilAddrMgrNwkAddrLookup: "UTIL_ADDRMGR_NWK_ADDR_LOOKUP",
	UtilAssocCount:           "UTIL_ASSOC_COUNT",
	UtilAssocFindDevice:      "UTIL_ASSOC_FIND_DEVICE",
	AfDataRequestExt:         "AF_DATA_REQUEST_EXT",
	ZdoMgmtNwkUpdateReq:      "ZDO_MGMT_NWK_UPDATE_REQ",
	ZdoExtNwkInfo:            "ZDO_EXT_NWK_INFO",
}

// NewCommandID builds an id from its parts.
func NewCommandID(typ, subsystem, id uint8) CommandID {
	return CommandID(uint16(typ&0xe0|subsystem&0x1f)<<8 | uint16(id))
}

// Type returns the frame type bits of CMD0.
func (c CommandID) Type() uint8 { return uint8(c>>8) & 0xe0 }

// Subsystem returns the subsystem bits of CMD0.
func (c CommandID) Subsystem() uint8 { return uint8(c>>8) & 0x1f }

// Cmd0 returns the first command byte.
func (c CommandID) Cmd0() uint8 { return uint8(c >> 8) }

// Cmd1 returns the second command byte.
func (c CommandID) Cmd1() uint8 { return uint8(c) }

// Response returns the SRSP id answering c.
func (c CommandID) Response() CommandID {
	return NewCommandID(TypeSRSP, c.Subsystem(), c.Cmd1())
}

func (c CommandID) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	if name, ok := commandNames[NewCommandID(TypeSREQ, c.Subsystem(), c.Cmd1())]; ok && c.Type() == TypeSRSP {
		return name + "_SRSP"
	}
	return fmt.Sprintf("0x%04X", uint16(c))
}
