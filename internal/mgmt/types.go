package mgmt

import "strconv"

// NvItem is one NV item slice as read from or written to the radio.
type NvItem struct {
	ID     uint16
	Offset uint8
	Value  []byte
	// Status is the radio's per-item status; zero on success.
	Status uint8
}

// AssociatedDevice is an entry of the radio's association table.
type AssociatedDevice struct {
	ShortAddr    uint16
	AddrIndex    uint16
	NodeRelation uint8
	DevStatus    uint8
	AssocCnt     uint8
	Age          uint8
}

// NvInfo summarises the radio's network NV items.
type NvInfo struct {
	Status        uint8
	IEEEAddr      uint64
	ScanChannels  uint32
	PanID         uint16
	SecurityLevel uint8
}

// Response is the envelope rendered for every request.
//
// Channel holds a *ChannelView on query and the requested channel as hex on
// change, matching the two shapes clients already parse.
type Response struct {
	Status         int         `json:"status"`
	Message        string      `json:"message,omitempty"`
	AssocCount     *int        `json:"assoc_count,omitempty"`
	Device         *DeviceView `json:"device,omitempty"`
	NvInfo         *NvInfoView `json:"nv_info,omitempty"`
	NvItem         *NvItemView `json:"nv_item,omitempty"`
	Channel        any         `json:"channel,omitempty"`
	NwkUpdateID    string      `json:"nwkUpdateId,omitempty"`
	CurrentChannel string      `json:"currentChannel,omitempty"`
}

// OK reports whether the response carries status 0.
func (r Response) OK() bool { return r.Status == 0 }

// DeviceView renders an AssociatedDevice.
type DeviceView struct {
	NwkAddr      string `json:"nwkAddr"`
	IEEEAddr     string `json:"ieeeAddr"`
	Age          uint8  `json:"age"`
	AssocCnt     uint8  `json:"assocCnt"`
	DevStatus    string `json:"devStatus"`
	NodeRelation uint8  `json:"nodeRelation"`
}

// NvInfoView renders NvInfo.
type NvInfoView struct {
	Status        uint8  `json:"status"`
	IEEEAddr      string `json:"IEEEAddr"`
	ScanChannels  string `json:"ScanChannels"`
	PanID         string `json:"PanId"`
	SecurityLevel string `json:"SecurityLevel"`
}

// NvItemView renders an NvItem.
type NvItemView struct {
	Status uint8  `json:"status"`
	ID     string `json:"id"`
	Offset string `json:"offset"`
	Len    NvLen  `json:"len"`
	Value  string `json:"value"`
}

// NvLen is the byte count of an NV item value. Read responses carry it as
// a JSON number, write responses as two hex digits.
type NvLen struct {
	N   int
	Hex bool
}

// MarshalJSON implements json.Marshaler.
func (l NvLen) MarshalJSON() ([]byte, error) {
	if l.Hex {
		return []byte(`"` + padHex(uint64(l.N), 2) + `"`), nil
	}
	return []byte(strconv.Itoa(l.N)), nil
}

// ChannelView renders the current logical channel.
type ChannelView struct {
	Number string `json:"number"`
}

func failure(err error) Response {
	return Response{Status: StatusOf(err), Message: err.Error()}
}
