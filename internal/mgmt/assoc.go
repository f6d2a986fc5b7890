package mgmt

import (
	"context"
	"fmt"
)

func (s *Service) handleAssocCount(ctx context.Context, _ Request) Response {
	count, err := s.hal.AssociationCount(ctx)
	if err != nil {
		s.logger.Warn("association count failed", "error", err)
		return Response{Status: StatusOf(err)}
	}
	return Response{Status: 0, AssocCount: &count}
}

func (s *Service) handleAssocFindDevice(ctx context.Context, req Request) Response {
	if err := req.Params.Require("number"); err != nil {
		return failure(err)
	}
	number, err := req.Params.Uint("number", 8)
	if err != nil {
		return failure(err)
	}

	dev, err := s.hal.AssociationInfo(ctx, uint8(number))
	if err != nil {
		s.logger.Warn("association lookup failed", "index", number, "error", err)
		return Response{Status: StatusOf(err)}
	}

	ieee, err := s.hal.ExtendedAddress(ctx, dev.ShortAddr)
	if err != nil {
		s.logger.Warn("extended address lookup failed", "nwk_addr", Hex16(dev.ShortAddr), "error", err)
		return Response{Status: StatusOf(err), Message: fmt.Sprintf("no extended address for %s", Hex16(dev.ShortAddr))}
	}

	if s.archive != nil {
		if err := s.archive.Record(ctx, dev, ieee); err != nil {
			s.logger.Warn("archiving device failed", "ieee_addr", Hex64(ieee), "error", err)
		}
	}

	return Response{Status: 0, Device: &DeviceView{
		NwkAddr:      Hex16(dev.ShortAddr),
		IEEEAddr:     Hex64(ieee),
		Age:          dev.Age,
		AssocCnt:     dev.AssocCnt,
		DevStatus:    Hex8(dev.DevStatus),
		NodeRelation: dev.NodeRelation,
	}}
}

func (s *Service) handleNvInfo(ctx context.Context, _ Request) Response {
	info, err := s.hal.NvInfo(ctx)
	if err != nil {
		s.logger.Warn("nv info failed", "error", err)
		return Response{Status: StatusOf(err)}
	}
	return Response{Status: 0, NvInfo: &NvInfoView{
		Status:        info.Status,
		IEEEAddr:      Hex64(info.IEEEAddr),
		ScanChannels:  Hex32(info.ScanChannels),
		PanID:         Hex16(info.PanID),
		SecurityLevel: Hex8(info.SecurityLevel),
	}}
}
