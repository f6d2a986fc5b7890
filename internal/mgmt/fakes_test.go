package mgmt

import (
	"context"
	"sync"
)

// fakeHAL is an in-memory radio.
type fakeHAL struct {
	mu sync.Mutex

	channel    uint8
	channelErr error
	updateID   uint8
	updateErr  error
	setIDErr   error
	setIDs     []uint8

	nvItems    map[uint16][]byte
	nvReadErr  error
	nvWriteErr error
	nvWrites   []NvItem

	assocCount int
	devices    map[uint8]AssociatedDevice
	extAddrs   map[uint16]uint64
	info       NvInfo
	infoErr    error

	restarts    []int
	restartErr  error
	defaults    int
	defaultsErr error
}

func newFakeHAL() *fakeHAL {
	return &fakeHAL{
		nvItems:  make(map[uint16][]byte),
		devices:  make(map[uint8]AssociatedDevice),
		extAddrs: make(map[uint16]uint64),
	}
}

func (f *fakeHAL) DelayRestart(_ context.Context, seconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.restartErr != nil {
		return f.restartErr
	}
	f.restarts = append(f.restarts, seconds)
	return nil
}

func (f *fakeHAL) SetFactoryDefaults(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.defaultsErr != nil {
		return f.defaultsErr
	}
	f.defaults++
	return nil
}

func (f *fakeHAL) AssociationCount(context.Context) (int, error) {
	return f.assocCount, nil
}

func (f *fakeHAL) AssociationInfo(_ context.Context, index uint8) (AssociatedDevice, error) {
	dev, ok := f.devices[index]
	if !ok {
		return AssociatedDevice{}, &HALError{Op: "assoc find device", Code: 0x02}
	}
	return dev, nil
}

func (f *fakeHAL) ExtendedAddress(_ context.Context, shortAddr uint16) (uint64, error) {
	addr, ok := f.extAddrs[shortAddr]
	if !ok {
		return 0, &HALError{Op: "addr lookup", Code: 0x01}
	}
	return addr, nil
}

func (f *fakeHAL) NvInfo(context.Context) (NvInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeHAL) ReadNvItem(_ context.Context, id uint16, offset uint8) (NvItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nvReadErr != nil {
		return NvItem{}, f.nvReadErr
	}
	v, ok := f.nvItems[id]
	if !ok {
		return NvItem{}, &HALError{Op: "nv read", Code: 0x09}
	}
	if int(offset) > len(v) {
		return NvItem{}, &HALError{Op: "nv read", Code: 0x0c}
	}
	return NvItem{ID: id, Offset: offset, Value: append([]byte(nil), v[offset:]...)}, nil
}

func (f *fakeHAL) WriteNvItem(_ context.Context, item NvItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nvWriteErr != nil {
		return f.nvWriteErr
	}
	f.nvWrites = append(f.nvWrites, item)
	return nil
}

func (f *fakeHAL) Channel(context.Context) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channel, f.channelErr
}

func (f *fakeHAL) NetworkUpdateID(context.Context) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateID, f.updateErr
}

func (f *fakeHAL) SetNetworkUpdateID(_ context.Context, id uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setIDErr != nil {
		return f.setIDErr
	}
	f.updateID = id
	f.setIDs = append(f.setIDs, id)
	return nil
}

// fakeZDO records submitted frames and never completes them.
type fakeZDO struct {
	mu        sync.Mutex
	frames    []NwkUpdateFrame
	dsts      []uint16
	radii     []uint8
	submitErr error
}

func (z *fakeZDO) SendBroadcast(dst uint16, radius uint8, frame Frame, _ func(error)) error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.submitErr != nil {
		return z.submitErr
	}
	if f, ok := frame.(NwkUpdateFrame); ok {
		z.frames = append(z.frames, f)
	}
	z.dsts = append(z.dsts, dst)
	z.radii = append(z.radii, radius)
	return nil
}

func (z *fakeZDO) sent() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return len(z.frames)
}

// recordingObserver captures events.
type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingObserver) Notify(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// fakeArchive records archive calls.
type fakeArchive struct {
	recorded map[uint64]AssociatedDevice
	cleared  int
}

func (a *fakeArchive) Record(_ context.Context, dev AssociatedDevice, ieee uint64) error {
	if a.recorded == nil {
		a.recorded = make(map[uint64]AssociatedDevice)
	}
	a.recorded[ieee] = dev
	return nil
}

func (a *fakeArchive) Clear(context.Context) error {
	a.cleared++
	a.recorded = nil
	return nil
}
