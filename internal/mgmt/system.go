package mgmt

import (
	"context"
	"fmt"
)

// Messages reported by the restart and startup state handlers.
const (
	MessageRestarting        = "rsserial is going down"
	MessageInvalidParameter  = "Invalid parameter"
	MessageDefaultsRestart   = "Restored to default network state, going down to restart..."
	MessageDefaultsNoRestart = "Restored to default network state, restart is need"
)

// factoryResetRestartDelay is the delay before the radio restarts after a
// factory reset requested with restart=1.
const factoryResetRestartDelay = 2

func (s *Service) handleRestart(ctx context.Context, req Request) Response {
	delay, err := req.Params.UintOr("delay", 16, 0)
	if err != nil {
		return failure(err)
	}

	if err := s.hal.DelayRestart(ctx, int(delay)); err != nil {
		s.logger.Error("scheduling restart failed", "delay", delay, "error", err)
		return failure(fmt.Errorf("scheduling restart: %w", err))
	}

	s.logger.Info("radio restart scheduled", "delay_seconds", delay)
	s.notify(ctx, Event{Type: EventRadioRestart, Topic: KindRestart.Topic(), Data: map[string]any{
		"delay": delay,
	}})
	return Response{Status: 0, Message: MessageRestarting}
}

func (s *Service) handleStartupState(ctx context.Context, req Request) Response {
	restart, err := req.Params.UintOr("restart", 8, 0)
	if err != nil {
		return failure(err)
	}
	defaults, err := req.Params.UintOr("default", 8, 0)
	if err != nil {
		return failure(err)
	}

	resp := Response{Status: 0, Message: MessageInvalidParameter}
	if defaults != 1 {
		return resp
	}

	if err := s.hal.SetFactoryDefaults(ctx); err != nil {
		s.logger.Error("restoring factory defaults failed", "error", err)
		return failure(fmt.Errorf("restoring factory defaults: %w", err))
	}
	if s.archive != nil {
		if err := s.archive.Clear(ctx); err != nil {
			s.logger.Warn("clearing device archive failed", "error", err)
		}
	}

	resp.Message = MessageDefaultsNoRestart
	if restart == 1 {
		if err := s.hal.DelayRestart(ctx, factoryResetRestartDelay); err != nil {
			s.logger.Error("scheduling restart failed", "error", err)
			return failure(fmt.Errorf("scheduling restart: %w", err))
		}
		resp.Message = MessageDefaultsRestart
	}

	s.logger.Info("radio restored to factory defaults", "restart", restart == 1)
	s.notify(ctx, Event{Type: EventFactoryReset, Topic: KindStartupState.Topic(), Data: map[string]any{
		"restart": restart == 1,
	}})
	return resp
}
