package driver

import (
	"testing"
)

func filterTrue(d Driver) bool {
	return true
}
func filterFalse(d Driver) bool {
	return false
}

func TestFilterNot(t *testing.T) {
	if FilterNot(filterTrue)(nil) != false {
		t.Error("FilterNot(filterTrue)() must be false")
	}
	if FilterNot(filterFalse)(nil) != true {
		t.Error("FilterNot(filterFalse)() must be true")
	}
}

func TestFilterAnd(t *testing.T) {
	if FilterAnd(filterTrue, filterTrue)(nil) != true {
		t.Error("FilterAnd(filterTrue, filterTrue)() must be true")
	}
	if FilterAnd(filterTrue, filterFalse)(nil) != false {
		t.Error("FilterAnd(filterTrue, filterFalse)() must be false")
	}
	if FilterAnd(filterFalse, filterTrue)(nil) != false {
		t.Error("FilterAnd(filterFalse, filterTrue)() must be false")
	}
	if FilterAnd(filterFalse, filterTrue, filterTrue)(nil) != false {
		t.Error("FilterAnd(filterFalse, filterTrue, filterTrue)() must be false")
	}
	if FilterAnd(filterTrue, filterTrue, filterTrue)(nil) != true {
		t.Error("FilterAnd(filterTrue, filterTrue, filterTrue)() must be true")
	}
}

func TestManagerQuery(t *testing.T) {
	m := &Manager{drivers: make(map[string]Driver)}

	if err := m.Register(&adapterMock{}, Info{Label: "plain"}); err == nil {
		t.Fatal("adapter without recorder must be rejected")
	}
	if err := m.Register(&videoAdapterMock{}, Info{Label: "b-cam", DeviceType: Camera}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := m.Register(&videoAdapterMock{}, Info{Label: "a-screen", DeviceType: Screen}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := m.Register(&audioAdapterMock{}, Info{Label: "mic", DeviceType: Microphone}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	all := m.Query(filterTrue)
	if len(all) != 3 {
		t.Fatalf("Expected 3 drivers, got %d", len(all))
	}
	if all[0].Info().Label != "a-screen" || all[1].Info().Label != "b-cam" || all[2].Info().Label != "mic" {
		t.Errorf("Expected drivers to be sorted by label, got %v", all)
	}

	cams := m.Query(FilterAnd(FilterVideoRecorder(), FilterNot(FilterDeviceType(Screen))))
	if len(cams) != 1 || cams[0].Info().Label != "b-cam" {
		t.Errorf("Expected only the camera, got %v", cams)
	}

	mics := m.Query(FilterAudioRecorder())
	if len(mics) != 1 {
		t.Fatalf("Expected one microphone, got %d", len(mics))
	}
	if got := m.Query(FilterID(mics[0].ID())); len(got) != 1 {
		t.Errorf("Expected FilterID to match one driver, got %d", len(got))
	}

	m.Unregister(mics[0].ID())
	m.Unregister("unknown")
	if got := m.Query(FilterAudioRecorder()); len(got) != 0 {
		t.Errorf("Expected microphone to be unregistered, got %v", got)
	}
}
