package prop

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// Media describes the properties of a capture source. When used as a
// constraint, zero numeric values mean "no preference".
type Media struct {
	DeviceID string
	Audio
}

// Merge merges all the field values from o to p, except zero values.
// Boolean fields are always merged since false is a meaningful value.
func (p *Media) Merge(o Media) {
	rp := reflect.ValueOf(p).Elem()
	ro := reflect.ValueOf(o)

	// merge b fields to a recursively
	var merge func(a, b reflect.Value)
	merge = func(a, b reflect.Value) {
		numFields := a.NumField()
		for i := 0; i < numFields; i++ {
			fieldA := a.Field(i)
			fieldB := b.Field(i)

			// if a is a struct, b is also a struct. Then,
			// we recursively merge them
			if fieldA.Kind() == reflect.Struct {
				merge(fieldA, fieldB)
				continue
			}

			if fieldB.IsZero() && fieldB.Kind() != reflect.Bool {
				continue
			}

			fieldA.Set(fieldB)
		}
	}

	merge(rp, ro)
}

// FitnessDistance returns how far o is from the ideal values in p. Zero
// values in p are ignored. 0 means a perfect fit.
func (p *Media) FitnessDistance(o Media) float64 {
	cmps := comparisons{}
	if p.ChannelCount != 0 {
		cmps.add(o.ChannelCount, p.ChannelCount)
	}
	if p.SampleRate != 0 {
		cmps.add(o.SampleRate, p.SampleRate)
	}
	if p.Latency != 0 {
		cmps.add(int64(o.Latency), int64(p.Latency))
	}
	if p.SampleSize != 0 {
		cmps.add(o.SampleSize, p.SampleSize)
	}
	return cmps.fitnessDistance()
}

type comparisons []struct{ actual, ideal string }

func (c *comparisons) add(actual, ideal interface{}) {
	*c = append(*c, struct{ actual, ideal string }{fmt.Sprint(actual), fmt.Sprint(ideal)})
}

// fitnessDistance is an implementation for https://w3c.github.io/mediacapture-main/#dfn-fitness-distance
func (c comparisons) fitnessDistance() float64 {
	var dist float64

	for _, cmp := range c {
		if cmp.actual == cmp.ideal {
			continue
		}

		actualF, err1 := strconv.ParseFloat(cmp.actual, 64)
		idealF, err2 := strconv.ParseFloat(cmp.ideal, 64)

		switch {
		// If both of the values are numeric, we need to normalize the values to get the distance
		case err1 == nil && err2 == nil:
			dist += math.Abs(actualF-idealF) / math.Max(math.Abs(actualF), math.Abs(idealF))
		// If both of the values are not numeric, the only comparison value is either 0 (matched) or 1 (not matched)
		case err1 != nil && err2 != nil:
			dist++
		// Comparing a numeric value with a non-numeric value is a an internal error, so panic.
		default:
			panic("fitnessDistance can't mix comparisons.")
		}
	}

	return dist
}

// Audio represents an audio's properties
type Audio struct {
	ChannelCount int
	Latency      time.Duration
	SampleRate   int
	SampleSize   int

	// Processing hints. Drivers apply what they support; the requested
	// values are reported back in the track settings.
	EchoCancellation bool
	AutoGainControl  bool
	NoiseSuppression bool
}

func (a Audio) String() string {
	return fmt.Sprintf("%dch %dHz %v ec=%t agc=%t ns=%t",
		a.ChannelCount, a.SampleRate, a.Latency, a.EchoCancellation, a.AutoGainControl, a.NoiseSuppression)
}
