package location

// Quality is an ordered confidence bucket attached to every location value.
// Greater is better.
type Quality int

const (
	QualityUnknown Quality = iota
	QualityVeryPoor
	QualityPoor
	QualityFair
	QualityGood
	QualityExcellent

	// QualityLevels is the number of quality buckets, Unknown included.
	QualityLevels = 6
)

// String implements the Stringer interface.
func (q Quality) String() string {
	switch q {
	case QualityVeryPoor:
		return "very-poor"
	case QualityPoor:
		return "poor"
	case QualityFair:
		return "fair"
	case QualityGood:
		return "good"
	case QualityExcellent:
		return "excellent"
	}
	return "unknown"
}

// Rank returns the ordinal of the quality bucket, Unknown first.
func (q Quality) Rank() int {
	if q < QualityUnknown || q >= QualityLevels {
		return int(QualityUnknown)
	}
	return int(q)
}

// Better reports whether q ranks above other.
func (q Quality) Better(other Quality) bool {
	return q.Rank() > other.Rank()
}

// QualityFromAccuracy buckets a reported horizontal accuracy (meters).
// Breakpoints follow the usual consumer-GNSS spread: a good phone fix
// sits under 10m, network fixes commonly land 50-500m.
func QualityFromAccuracy(accuracy float64) Quality {
	switch {
	case accuracy <= 0:
		return QualityUnknown
	case accuracy <= 5:
		return QualityExcellent
	case accuracy <= 15:
		return QualityGood
	case accuracy <= 50:
		return QualityFair
	case accuracy <= 100:
		return QualityPoor
	default:
		return QualityVeryPoor
	}
}

// MarshalText implements the encoding.TextMarshaler interface.
func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (q *Quality) UnmarshalText(text []byte) error {
	switch string(text) {
	case "very-poor":
		*q = QualityVeryPoor
	case "poor":
		*q = QualityPoor
	case "fair":
		*q = QualityFair
	case "good":
		*q = QualityGood
	case "excellent":
		*q = QualityExcellent
	default:
		*q = QualityUnknown
	}
	return nil
}
