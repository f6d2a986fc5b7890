package mgmt

import (
	"context"
	"strings"
)

// Kind enumerates the management requests.
type Kind int

// Request kinds, one per topic.
const (
	KindRestart Kind = iota + 1
	KindStartupState
	KindAssocCount
	KindAssocFindDevice
	KindNvInfo
	KindNvItem
	KindLogicalChannel
)

var topics = [...]string{
	KindRestart:         "rsserial/restart",
	KindStartupState:    "rsserial/startup_state",
	KindAssocCount:      "zigbee_module/assoc_count",
	KindAssocFindDevice: "zigbee_module/assoc_find_device",
	KindNvInfo:          "zigbee_module/get_nv_info",
	KindNvItem:          "zigbee_module/nv_item",
	KindLogicalChannel:  "zigbee_module/logical_channel",
}

// Kinds returns every request kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(topics)-1)
	for k := KindRestart; int(k) < len(topics); k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Topic returns the topic a kind is addressed by, or "" for an invalid kind.
func (k Kind) Topic() string {
	if k <= 0 || int(k) >= len(topics) {
		return ""
	}
	return topics[k]
}

func (k Kind) String() string {
	if t := k.Topic(); t != "" {
		return t
	}
	return "unknown"
}

// ParseTopic resolves a topic such as "zigbee_module/nv_item". Leading and
// trailing slashes are ignored.
func ParseTopic(topic string) (Kind, bool) {
	topic = strings.Trim(topic, "/")
	for _, k := range Kinds() {
		if topics[k] == topic {
			return k, true
		}
	}
	return 0, false
}

type handlerFunc func(ctx context.Context, req Request) Response

type route struct {
	methods []string
	handle  handlerFunc
}

// Service dispatches management requests to their handlers.
type Service struct {
	hal       HAL
	nv        *NvAccess
	channel   *ChannelCoordinator
	archive   DeviceArchive
	observers []Observer
	logger    Logger

	routes [len(topics)]route
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithArchive records associated devices found by lookups and clears them on
// factory reset.
func WithArchive(a DeviceArchive) Option {
	return func(s *Service) { s.archive = a }
}

// WithObserver adds an event observer.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

// NewService creates a Service bound to the radio.
func NewService(hal HAL, zdo ZDO, opts ...Option) *Service {
	s := &Service{hal: hal, logger: nopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	s.nv = NewNvAccess(hal)
	s.channel = NewChannelCoordinator(hal, zdo, s.logger)

	s.routes[KindRestart] = route{[]string{MethodPost}, s.handleRestart}
	s.routes[KindStartupState] = route{[]string{MethodPost}, s.handleStartupState}
	s.routes[KindAssocCount] = route{[]string{MethodGet}, s.handleAssocCount}
	s.routes[KindAssocFindDevice] = route{[]string{MethodGet}, s.handleAssocFindDevice}
	s.routes[KindNvInfo] = route{[]string{MethodGet}, s.handleNvInfo}
	s.routes[KindNvItem] = route{[]string{MethodGet, MethodPost}, s.handleNvItem}
	s.routes[KindLogicalChannel] = route{[]string{MethodGet, MethodPost}, s.handleLogicalChannel}
	return s
}

// Methods returns the verbs a kind accepts.
func (s *Service) Methods(kind Kind) []string {
	if kind.Topic() == "" {
		return nil
	}
	return s.routes[kind].methods
}

// Dispatch runs the handler for kind. It always returns a Response; failures
// are rendered into it.
func (s *Service) Dispatch(ctx context.Context, kind Kind, req Request) Response {
	if kind.Topic() == "" {
		return failure(ErrUnknownTopic)
	}

	r := s.routes[kind]
	req.Method = strings.ToUpper(req.Method)
	if !allows(r.methods, req.Method) {
		return failure(ErrUnsupportedVerb)
	}
	if req.Params == nil {
		req.Params = Params{}
	}

	resp := r.handle(ctx, req)
	s.logger.Debug("management request handled",
		"topic", kind.Topic(),
		"method", req.Method,
		"status", resp.Status,
	)
	return resp
}

// DispatchTopic resolves topic and dispatches the request.
func (s *Service) DispatchTopic(ctx context.Context, topic string, req Request) Response {
	kind, ok := ParseTopic(topic)
	if !ok {
		return failure(ErrUnknownTopic)
	}
	return s.Dispatch(ctx, kind, req)
}
