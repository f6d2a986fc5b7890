package mgmt

import (
	"context"
	"fmt"
)

// MessageNvWrite is reported for every write that passed validation,
// whether or not the radio applied it.
const MessageNvWrite = "Executed NV write"

// NvAccess reads and writes single NV items through the HAL.
type NvAccess struct {
	hal HAL
}

// NewNvAccess creates an NV coordinator.
func NewNvAccess(hal HAL) *NvAccess {
	return &NvAccess{hal: hal}
}

// Read fetches the item id starting at offset.
func (n *NvAccess) Read(ctx context.Context, id uint16, offset uint8) (NvItem, error) {
	item, err := n.hal.ReadNvItem(ctx, id, offset)
	if err != nil {
		return NvItem{}, fmt.Errorf("reading nv item 0x%04x: %w", id, err)
	}
	if len(item.Value) > MaxValueBytes {
		return NvItem{}, ErrValueTooLarge
	}
	item.ID, item.Offset = id, offset
	return item, nil
}

// Write decodes hexValue into exactly length bytes and writes it at offset.
//
// Decoding failures are returned before the HAL is called. The returned item
// is only meaningful when err is nil.
func (n *NvAccess) Write(ctx context.Context, id uint16, offset, length uint8, hexValue string) (NvItem, error) {
	value, err := DecodeHex(hexValue, int(length))
	if err != nil {
		return NvItem{}, err
	}

	item := NvItem{ID: id, Offset: offset, Value: value}
	if err := n.hal.WriteNvItem(ctx, item); err != nil {
		return NvItem{}, fmt.Errorf("writing nv item 0x%04x: %w", id, err)
	}
	return item, nil
}

// View renders item for a response.
func (item NvItem) View() (*NvItemView, error) {
	value, err := EncodeHex(item.Value)
	if err != nil {
		return nil, err
	}
	return &NvItemView{
		Status: item.Status,
		ID:     Hex16(item.ID),
		Offset: Hex8(item.Offset),
		Len:    NvLen{N: len(item.Value)},
		Value:  value,
	}, nil
}

// nvItemArgs holds the parsed id and offset shared by read and write.
type nvItemArgs struct {
	id     uint16
	offset uint8
}

func parseNvItemArgs(p Params) (nvItemArgs, error) {
	if err := p.Require("id", "offset"); err != nil {
		return nvItemArgs{}, err
	}
	id, err := p.Uint("id", 16)
	if err != nil {
		return nvItemArgs{}, err
	}
	offset, err := p.Uint("offset", 8)
	if err != nil {
		return nvItemArgs{}, err
	}
	return nvItemArgs{id: uint16(id), offset: uint8(offset)}, nil
}

func (s *Service) handleNvItem(ctx context.Context, req Request) Response {
	if req.Method == MethodGet {
		return s.readNvItem(ctx, req.Params)
	}
	return s.writeNvItem(ctx, req.Params)
}

func (s *Service) readNvItem(ctx context.Context, p Params) Response {
	args, err := parseNvItemArgs(p)
	if err != nil {
		return failure(err)
	}

	item, err := s.nv.Read(ctx, args.id, args.offset)
	if err != nil {
		s.logger.Warn("nv read failed", "id", Hex16(args.id), "offset", args.offset, "error", err)
		return Response{Status: StatusOf(err)}
	}

	view, err := item.View()
	if err != nil {
		return failure(err)
	}
	return Response{Status: 0, NvItem: view}
}

func (s *Service) writeNvItem(ctx context.Context, p Params) Response {
	if err := p.Require("id", "offset", "len", "value"); err != nil {
		return failure(err)
	}
	args, err := parseNvItemArgs(p)
	if err != nil {
		return failure(err)
	}
	length, err := p.Uint("len", 8)
	if err != nil {
		return failure(err)
	}
	value, err := p.String("value")
	if err != nil {
		return failure(err)
	}

	item, err := s.nv.Write(ctx, args.id, args.offset, uint8(length), value)
	if err != nil && isLocal(err) {
		return failure(err)
	}

	// The outer status reports that the write was accepted; nv_item is only
	// present when the radio applied it.
	resp := Response{Status: 0, Message: MessageNvWrite}
	if err != nil {
		s.logger.Warn("nv write failed", "id", Hex16(args.id), "offset", args.offset, "error", err)
		s.notify(ctx, Event{Type: EventNvWritten, Topic: KindNvItem.Topic(), Status: StatusOf(err), Data: map[string]any{
			"id":     Hex16(args.id),
			"offset": Hex8(args.offset),
			"len":    length,
		}})
		return resp
	}

	view, err := item.View()
	if err != nil {
		return failure(err)
	}
	view.Len.Hex = true
	resp.NvItem = view
	s.notify(ctx, Event{Type: EventNvWritten, Topic: KindNvItem.Topic(), Status: 0, Data: map[string]any{
		"id":     view.ID,
		"offset": view.Offset,
		"len":    view.Len.N,
	}})
	return resp
}
