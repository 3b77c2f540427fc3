package points

// Point is one row destined for the time-series store. Field values are
// typed through their Go type: uint64 for counts, float64 for rates,
// int64 for signed values, string for encoded lists and statuses. The
// timestamp is whole seconds.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	Timestamp   int64
}

// Tags builds the fixed tag set carried by every point of one instance.
func Tags(alias, hostname string) map[string]string {
	return map[string]string{
		"alias":    alias,
		"hostname": hostname,
	}
}
