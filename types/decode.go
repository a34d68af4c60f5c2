// Package types decodes provider-shaped JSON lines into the core value
// types. Providers never agree on field names; this is the shim that
// tolerates the common spellings.
package types

import (
	"errors"
	"time"

	"github.com/rotblauer/catfuse/types/location"
	"github.com/rotblauer/catfuse/types/motion"
	"github.com/tidwall/gjson"
)

var ErrDecodeSample = errors.New("could not decode as location or sensor sample")

// IsSensorLine sniffs whether a JSON line is a 3-axis sensor reading.
func IsSensorLine(data []byte) bool {
	return gjson.GetBytes(data, "x").Exists() && gjson.GetBytes(data, "y").Exists()
}

// pick returns the first existing path's result.
func pick(data []byte, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := gjson.GetBytes(data, p); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

func pickTime(data []byte) time.Time {
	if r := pick(data, "time", "Time", "timestamp"); r.Exists() {
		if r.Type == gjson.String {
			if t, err := time.Parse(time.RFC3339, r.String()); err == nil {
				return t
			}
		}
		// Seconds since epoch, possibly fractional.
		sec := r.Float()
		if sec > 0 {
			return time.Unix(int64(sec), int64((sec-float64(int64(sec)))*1e9))
		}
	}
	if r := pick(data, "unixtime", "UnixTime"); r.Exists() {
		return time.Unix(r.Int(), 0)
	}
	return time.Time{}
}

// DecodeRawSample decodes one provider location line, tolerating the usual
// field-name variants (lat/latitude, lng/lon/longitude, acc/accuracy...).
func DecodeRawSample(data []byte) (location.RawSample, error) {
	lat := pick(data, "lat", "latitude", "Lat", "Latitude")
	lng := pick(data, "lng", "lon", "longitude", "Lng", "Lon", "Longitude")
	if !lat.Exists() || !lng.Exists() {
		return location.RawSample{}, ErrDecodeSample
	}
	ts := pickTime(data)
	if ts.IsZero() {
		return location.RawSample{}, errors.New("missing or zero time field")
	}

	s := location.RawSample{
		Lat:    lat.Float(),
		Lng:    lng.Float(),
		Time:   ts,
		Source: location.SourceFromString(pick(data, "source", "provider", "Source").String()),
	}
	if r := pick(data, "accuracy", "acc", "horizontalAccuracy", "Accuracy"); r.Exists() {
		s.Accuracy = r.Float()
	}
	if r := pick(data, "speed", "Speed"); r.Exists() {
		s.Speed, s.HasSpeed = r.Float(), true
	}
	if r := pick(data, "heading", "bearing", "Heading"); r.Exists() {
		s.Heading, s.HasHeading = r.Float(), true
	}
	if r := pick(data, "elevation", "altitude", "alt", "Elevation"); r.Exists() {
		s.Elevation, s.HasElevation = r.Float(), true
	}
	if r := pick(data, "quality", "Quality"); r.Exists() {
		_ = s.Quality.UnmarshalText([]byte(r.String()))
	}
	return s, nil
}

// DecodeSensorSample decodes one 3-axis sensor line.
func DecodeSensorSample(data []byte) (motion.SensorSample, error) {
	x, y, z := pick(data, "x", "X"), pick(data, "y", "Y"), pick(data, "z", "Z")
	if !x.Exists() || !y.Exists() {
		return motion.SensorSample{}, ErrDecodeSample
	}
	ts := pickTime(data)
	if ts.IsZero() {
		return motion.SensorSample{}, errors.New("missing or zero time field")
	}
	s := motion.SensorSample{
		X: x.Float(), Y: y.Float(), Z: z.Float(),
		Time: ts,
	}
	switch pick(data, "sensor", "type", "Sensor").String() {
	case "gyroscope", "gyro":
		s.Type = motion.Gyroscope
	case "magnetometer", "mag", "compass":
		s.Type = motion.Magnetometer
	default:
		s.Type = motion.Accelerometer
	}
	return s, nil
}
