// Package testdata holds provider lines as clients actually emit them,
// spelling variants and all. Tests decode these instead of hand-rolling
// field names per test.
package testdata

var Line_GPS_iOS = `{"latitude":44.98896789550781,"longitude":-93.2554931640625,"horizontalAccuracy":23.13,"speed":1.06,"heading":271.4,"altitude":328.43,"provider":"gps","Time":"2024-12-23T15:31:56.728Z","UnixTime":1734967916}`

var Line_GPS_Android = `{"lat":47.1787276,"lng":-113.4730765,"acc":3.9,"speed":0.06,"bearing":-1,"alt":1258.4,"source":"gps","time":"2024-12-23T15:05:34.710Z"}`

var Line_Network_WiFi = `{"lat":47.1787301,"lon":-113.4730912,"accuracy":48.0,"provider":"network","timestamp":1734966334}`

var Line_Passive = `{"lat":47.1786990,"lng":-113.4731055,"accuracy":95.5,"source":"passive","time":1734966334.5}`

var Line_Sensor_Accel = `{"x":-1.91,"y":-0.86,"z":-9.57,"sensor":"accelerometer","time":1734966334.71}`

var Line_Sensor_Gyro = `{"x":0.004,"y":-0.002,"z":0.001,"sensor":"gyro","time":1734966334.71}`

var Line_Sensor_Mag = `{"x":21.4,"y":-3.8,"z":-44.1,"sensor":"compass","time":1734966334.71}`

var Line_Garbage = `{"battery":0.95,"ssid":"Banana Hotel"}`

// Lines joins fixtures into an NDJSON byte stream.
func Lines(vv ...string) []byte {
	out := []byte{}
	for _, v := range vv {
		out = append(out, v...)
		out = append(out, '\n')
	}
	return out
}
