package types

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/rotblauer/catfuse/testing/testdata"
	"github.com/rotblauer/catfuse/types/location"
	"github.com/rotblauer/catfuse/types/motion"
)

func TestDecodeRawSampleVariants(t *testing.T) {
	lines := [][]byte{
		[]byte(`{"lat":46.87,"lng":-113.99,"accuracy":5,"speed":1.2,"heading":10,"time":"2024-08-30T12:00:00Z","source":"gps"}`),
		[]byte(`{"latitude":46.87,"longitude":-113.99,"acc":5,"bearing":10,"timestamp":1724900000,"provider":"network"}`),
		[]byte(`{"Lat":46.87,"Lon":-113.99,"Accuracy":5,"UnixTime":1724900000}`),
	}
	for i, line := range lines {
		s, err := DecodeRawSample(line)
		if err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if s.Lat != 46.87 || s.Accuracy != 5 {
			t.Errorf("line %d: %+v", i, s)
		}
		if s.Time.IsZero() {
			t.Errorf("line %d: zero time", i)
		}
	}
}

func TestDecodeRawSampleSource(t *testing.T) {
	s, err := DecodeRawSample([]byte(`{"lat":1,"lng":2,"time":"2024-08-30T12:00:00Z","source":"network"}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Source != location.SourceNetwork {
		t.Errorf("want network, got %v", s.Source)
	}
}

func TestDecodeRawSampleMissingFields(t *testing.T) {
	if _, err := DecodeRawSample([]byte(`{"lng":-113.99}`)); err == nil {
		t.Error("missing lat must fail")
	}
	if _, err := DecodeRawSample([]byte(`{"lat":46.87,"lng":-113.99}`)); err == nil {
		t.Error("missing time must fail")
	}
}

func TestDecodeSensorSample(t *testing.T) {
	s, err := DecodeSensorSample([]byte(`{"x":0.1,"y":0.2,"z":9.8,"sensor":"gyroscope","time":1724900000.5}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Type != motion.Gyroscope || s.Z != 9.8 {
		t.Errorf("%+v", s)
	}
	if s.Time.IsZero() {
		t.Error("zero time")
	}
}

// Fixture lines are verbatim provider output; the decoder must sort a mixed
// stream into locations and sensor readings without dropping either.
func TestDecodeProviderFixtures(t *testing.T) {
	stream := testdata.Lines(
		testdata.Line_GPS_iOS,
		testdata.Line_GPS_Android,
		testdata.Line_Network_WiFi,
		testdata.Line_Passive,
		testdata.Line_Sensor_Accel,
		testdata.Line_Sensor_Gyro,
		testdata.Line_Sensor_Mag,
		testdata.Line_Garbage,
	)
	var locs, sensors, bad int
	scanner := bufio.NewScanner(bytes.NewReader(stream))
	for scanner.Scan() {
		line := scanner.Bytes()
		if IsSensorLine(line) {
			if _, err := DecodeSensorSample(line); err != nil {
				t.Errorf("sensor line failed: %s", line)
				continue
			}
			sensors++
			continue
		}
		if _, err := DecodeRawSample(line); err != nil {
			bad++
			continue
		}
		locs++
	}
	if locs != 4 || sensors != 3 || bad != 1 {
		t.Errorf("locs=%d sensors=%d bad=%d", locs, sensors, bad)
	}
}

func TestDecodeProviderFixtureSources(t *testing.T) {
	want := map[string]location.Source{
		testdata.Line_GPS_iOS:      location.SourceGPS,
		testdata.Line_GPS_Android:  location.SourceGPS,
		testdata.Line_Network_WiFi: location.SourceNetwork,
		testdata.Line_Passive:      location.SourcePassive,
	}
	for line, src := range want {
		s, err := DecodeRawSample([]byte(line))
		if err != nil {
			t.Fatalf("%s: %v", line, err)
		}
		if s.Source != src {
			t.Errorf("want %v, got %v: %s", src, s.Source, line)
		}
	}
}

func TestIsSensorLine(t *testing.T) {
	if !IsSensorLine([]byte(`{"x":1,"y":2,"z":3,"time":1}`)) {
		t.Error("sensor line not sniffed")
	}
	if IsSensorLine([]byte(`{"lat":1,"lng":2}`)) {
		t.Error("location line sniffed as sensor")
	}
}
