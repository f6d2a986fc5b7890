package mgmt

import (
	"context"
	"testing"
)

func TestParseTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  Kind
		ok    bool
	}{
		{"rsserial/restart", KindRestart, true},
		{"rsserial/startup_state", KindStartupState, true},
		{"zigbee_module/assoc_count", KindAssocCount, true},
		{"zigbee_module/assoc_find_device", KindAssocFindDevice, true},
		{"zigbee_module/get_nv_info", KindNvInfo, true},
		{"/zigbee_module/nv_item", KindNvItem, true},
		{"zigbee_module/logical_channel/", KindLogicalChannel, true},
		{"zigbee_module/unknown", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := ParseTopic(tt.topic)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseTopic(%q) = %v, %v; want %v, %v", tt.topic, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestKinds_AllHaveTopicsAndRoutes(t *testing.T) {
	s := NewService(newFakeHAL(), &fakeZDO{})

	kinds := Kinds()
	if len(kinds) != 7 {
		t.Fatalf("Kinds() = %d entries, want 7", len(kinds))
	}
	for _, k := range kinds {
		if k.Topic() == "" {
			t.Errorf("kind %d has no topic", k)
		}
		if len(s.Methods(k)) == 0 {
			t.Errorf("kind %s has no methods", k)
		}
		if back, ok := ParseTopic(k.Topic()); !ok || back != k {
			t.Errorf("ParseTopic(%q) = %v, %v", k.Topic(), back, ok)
		}
	}
}

func TestDispatch_VerbSets(t *testing.T) {
	s := NewService(newFakeHAL(), &fakeZDO{})

	tests := []struct {
		kind   Kind
		method string
	}{
		{KindRestart, "GET"},
		{KindStartupState, "GET"},
		{KindAssocCount, "POST"},
		{KindAssocFindDevice, "POST"},
		{KindNvInfo, "PUT"},
		{KindLogicalChannel, "DELETE"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String()+" "+tt.method, func(t *testing.T) {
			resp := s.Dispatch(context.Background(), tt.kind, Request{Method: tt.method})
			if resp.Status != StatusInvalid || resp.Message != ErrUnsupportedVerb.Error() {
				t.Errorf("got {%d %q}, want unsupported verb", resp.Status, resp.Message)
			}
		})
	}
}

func TestDispatch_UnknownKind(t *testing.T) {
	s := NewService(newFakeHAL(), &fakeZDO{})

	resp := s.Dispatch(context.Background(), Kind(99), Request{Method: "GET"})
	if resp.Status != StatusInvalid {
		t.Errorf("Status = %d, want -1", resp.Status)
	}

	resp = s.DispatchTopic(context.Background(), "zigbee_module/nope", Request{Method: "GET"})
	if resp.Message != ErrUnknownTopic.Error() {
		t.Errorf("Message = %q, want %q", resp.Message, ErrUnknownTopic.Error())
	}
}
