package mgmt

import (
	"context"
	"fmt"
	"sync"
)

// MaxLogicalChannel is the highest logical channel number accepted.
const MaxLogicalChannel = 26

// UnknownUpdateID is the reserved nwkUpdateId value meaning "unknown".
const UnknownUpdateID uint8 = 0xff

// Messages reported by the logical channel handler.
const (
	MessageChannelOK      = "ok"
	MessageMissingChannel = "Missing channel number"
)

// ChannelChange describes the outcome of a change request.
type ChannelChange struct {
	// Previous is the channel observed before the request.
	Previous  uint8
	Requested uint8
	UpdateID  uint8
	// Applied is false when Requested already matched Previous.
	Applied bool
}

// ChannelCoordinator moves the network to a new logical channel while
// keeping the network update id consistent with the broadcast frame.
type ChannelCoordinator struct {
	hal    HAL
	zdo    ZDO
	logger Logger

	// mu covers the whole read, decide, persist, send sequence.
	mu sync.Mutex
}

// NewChannelCoordinator creates a coordinator.
func NewChannelCoordinator(hal HAL, zdo ZDO, logger Logger) *ChannelCoordinator {
	if logger == nil {
		logger = nopLogger{}
	}
	return &ChannelCoordinator{hal: hal, zdo: zdo, logger: logger}
}

// Current returns the radio's current logical channel.
func (c *ChannelCoordinator) Current(ctx context.Context) (uint8, error) {
	ch, err := c.hal.Channel(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading channel: %w", err)
	}
	return ch, nil
}

// NextUpdateID returns the update id that follows cur. The result is never
// UnknownUpdateID: a counter that is, or would become, 0xff restarts at 0
// before being incremented.
func NextUpdateID(cur uint8) uint8 {
	// 0xfe wraps too, so it yields 1 rather than 0xff.
	if cur >= UnknownUpdateID-1 {
		cur = 0
	}
	return cur + 1
}

// Change requests a move to channel. When the network is already on channel
// nothing is persisted or sent.
//
// The broadcast is submitted and not awaited; Change returns before any node
// applies the update.
func (c *ChannelCoordinator) Change(ctx context.Context, channel uint8) (ChannelChange, error) {
	if channel > MaxLogicalChannel {
		return ChannelChange{}, ErrChannelOutOfRange
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.hal.Channel(ctx)
	if err != nil {
		return ChannelChange{}, fmt.Errorf("reading channel: %w", err)
	}
	updateID, err := c.hal.NetworkUpdateID(ctx)
	if err != nil {
		return ChannelChange{}, fmt.Errorf("reading network update id: %w", err)
	}

	result := ChannelChange{Previous: current, Requested: channel, UpdateID: updateID}
	if current == channel {
		return result, nil
	}

	next := NextUpdateID(updateID)
	if err := c.hal.SetNetworkUpdateID(ctx, next); err != nil {
		return ChannelChange{}, fmt.Errorf("persisting network update id: %w", err)
	}
	result.UpdateID = next
	result.Applied = true

	frame := NwkUpdateFrame{
		ChannelMask:  1 << channel,
		ScanDuration: ScanDurationChannelChange,
		UpdateID:     next,
		ManagerAddr:  0x0000,
	}
	err = c.zdo.SendBroadcast(BroadcastAll, MaxRadius, frame, func(err error) {
		if err != nil {
			c.logger.Debug("channel update broadcast not confirmed", "channel", channel, "error", err)
		}
	})
	if err != nil {
		// The id is already persisted; the next change moves past it.
		c.logger.Warn("channel update broadcast not submitted", "channel", channel, "update_id", next, "error", err)
	}

	return result, nil
}

func (s *Service) handleLogicalChannel(ctx context.Context, req Request) Response {
	if req.Method == MethodGet {
		ch, err := s.channel.Current(ctx)
		if err != nil {
			s.logger.Warn("channel read failed", "error", err)
			return Response{Status: StatusOf(err)}
		}
		return Response{Status: 0, Channel: &ChannelView{Number: Hex8(ch)}}
	}

	if !req.Params.Has("number") {
		return Response{Status: StatusInvalid, Message: MessageMissingChannel}
	}
	number, err := req.Params.Uint("number", 8)
	if err != nil {
		return failure(err)
	}

	change, err := s.channel.Change(ctx, uint8(number))
	if err != nil {
		s.logger.Warn("channel change failed", "channel", number, "error", err)
		return failure(err)
	}

	if change.Applied {
		s.logger.Info("logical channel change submitted",
			"from", change.Previous,
			"to", change.Requested,
			"update_id", change.UpdateID,
		)
		s.notify(ctx, Event{Type: EventChannelChanged, Topic: KindLogicalChannel.Topic(), Data: map[string]any{
			"previous":    change.Previous,
			"channel":     change.Requested,
			"nwkUpdateId": change.UpdateID,
		}})
	}

	return Response{
		Status:         0,
		Message:        MessageChannelOK,
		NwkUpdateID:    Hex8(change.UpdateID),
		CurrentChannel: Hex8(change.Previous),
		Channel:        Hex8(change.Requested),
	}
}
