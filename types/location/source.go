package location

import "regexp"

// Source is the provider class of a raw sample.
type Source int

const (
	// SourceGPS is the primary high-accuracy provider (GNSS fix).
	SourceGPS Source = iota
	// SourceNetwork is a cell/wifi network-derived position.
	SourceNetwork
	// SourcePassive is an opportunistic position piggybacked from
	// whatever some other app requested.
	SourcePassive
	// SourceUnknown tags samples from an unrecognized provider.
	SourceUnknown Source = -1
)

var AllSourceNames = []string{
	SourceGPS.String(),
	SourceNetwork.String(),
	SourcePassive.String(),
}

var (
	sourceGPS     = regexp.MustCompile(`(?i)gps|gnss|fused|high`)
	sourceNetwork = regexp.MustCompile(`(?i)network|cell|wifi`)
	sourcePassive = regexp.MustCompile(`(?i)passive|opportunistic`)
)

// String implements the Stringer interface.
func (s Source) String() string {
	switch s {
	case SourceGPS:
		return "gps"
	case SourceNetwork:
		return "network"
	case SourcePassive:
		return "passive"
	}
	return "unknown"
}

func SourceFromString(str string) Source {
	switch {
	case sourceGPS.MatchString(str):
		return SourceGPS
	case sourceNetwork.MatchString(str):
		return SourceNetwork
	case sourcePassive.MatchString(str):
		return SourcePassive
	}
	return SourceUnknown
}

// IsKnown returns true if the source is not Unknown.
func (s Source) IsKnown() bool {
	return s != SourceUnknown
}

// MarshalText implements the encoding.TextMarshaler interface.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (s *Source) UnmarshalText(text []byte) error {
	*s = SourceFromString(string(text))
	return nil
}
