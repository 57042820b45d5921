package vehicle

// Metric names one telemetry series and how to read it from a Snapshot.
type Metric struct {
	Name string
	Read func(Snapshot) float64
}

// Metrics is the fixed set of series sampled for logging and plotting.
var Metrics = []Metric{
	{"altitude_rangefinder", func(s Snapshot) float64 { return s.RangefinderAltitude }},
	{"altitude_barometric", func(s Snapshot) float64 { return s.BarometricAltitude }},
	{"airspeed", func(s Snapshot) float64 { return s.Airspeed }},
	{"roll", func(s Snapshot) float64 { return s.Attitude.Roll }},
	{"pitch", func(s Snapshot) float64 { return s.Attitude.Pitch }},
	{"yaw", func(s Snapshot) float64 { return s.Attitude.Yaw }},
	{"heading", func(s Snapshot) float64 { return s.Heading }},
	{"armed", func(s Snapshot) float64 { return boolFloat(s.Armed) }},
}

// Sample evaluates every metric against s.
func Sample(s Snapshot) map[string]float64 {
	out := make(map[string]float64, len(Metrics))
	for _, m := range Metrics {
		out[m.Name] = m.Read(s)
	}
	return out
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
