package znp

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
)

func TestFrame_MarshalBinary(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  []byte
	}{
		{"ping", Frame{Command: SysPing}, []byte{0xfe, 0x00, 0x21, 0x01, 0x20}},
		{
			"nv read",
			Frame{Command: SysOsalNvRead, Data: []byte{0x21, 0x00, 0x6d}},
			[]byte{0xfe, 0x03, 0x21, 0x08, 0x21, 0x00, 0x6d, 0x03 ^ 0x21 ^ 0x08 ^ 0x21 ^ 0x00 ^ 0x6d},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.frame.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("MarshalBinary = % x, want % x", got, tt.want)
			}
		})
	}
}

func TestFrame_MarshalBinaryTooLong(t *testing.T) {
	_, err := Frame{Command: SysOsalNvWrite, Data: make([]byte, MaxDataLen+1)}.MarshalBinary()
	if !errors.Is(err, ErrFrameTooLong) {
		t.Errorf("error = %v, want ErrFrameTooLong", err)
	}
}

func TestReadFrame_SkipsNoiseBeforeSOF(t *testing.T) {
	raw, _ := Frame{Command: SysOsalNvRead.Response(), Data: []byte{0x00, 0x01, 0x07}}.MarshalBinary() //nolint:errcheck // short payload
	stream := append([]byte{0x00, 0x13, 0x37}, raw...)

	f, err := ReadFrame(bufio.NewReader(bytes.NewReader(stream)))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.Command != 0x6108 {
		t.Errorf("Command = %s, want 0x6108", f.Command)
	}
	if !bytes.Equal(f.Data, []byte{0x00, 0x01, 0x07}) {
		t.Errorf("Data = % x", f.Data)
	}
}

func TestReadFrame_BadChecksum(t *testing.T) {
	raw, _ := Frame{Command: SysPing.Response(), Data: []byte{0x79, 0x01}}.MarshalBinary() //nolint:errcheck // short payload
	raw[len(raw)-1] ^= 0xff

	_, err := ReadFrame(bufio.NewReader(bytes.NewReader(raw)))
	if !errors.Is(err, ErrBadChecksum) {
		t.Errorf("error = %v, want ErrBadChecksum", err)
	}
}

func TestCommandID(t *testing.T) {
	if SysOsalNvRead.Type() != TypeSREQ || SysOsalNvRead.Subsystem() != SubsysSYS {
		t.Errorf("SysOsalNvRead type/subsystem = 0x%02x/0x%02x", SysOsalNvRead.Type(), SysOsalNvRead.Subsystem())
	}
	if SysOsalNvRead.Response() != 0x6108 {
		t.Errorf("Response() = %s, want 0x6108", SysOsalNvRead.Response())
	}
	if ZdoMgmtNwkUpdateReq.Subsystem() != SubsysZDO {
		t.Errorf("ZdoMgmtNwkUpdateReq subsystem = 0x%02x", ZdoMgmtNwkUpdateReq.Subsystem())
	}
	if got := SysOsalNvRead.Response().String(); got != "SYS_OSAL_NV_READ_SRSP" {
		t.Errorf("String() = %q", got)
	}
	if got := SysResetReq.Type(); got != TypeAREQ {
		t.Errorf("SysResetReq type = 0x%02x, want AREQ", got)
	}
}
