package specan

// Peak represents a channel whose signal exceeds a threshold
type Peak struct {
	Index     int
	Channel   uint8
	Frequency float64 // MHz
	Strength  uint8
}

// FindPeaks returns channels with strength at or above threshold
func FindPeaks(frame *Frame, threshold uint8) []Peak {
	var peaks []Peak
	for i := range frame.Raw {
		if s := frame.Strength(i); s >= threshold {
			peaks = append(peaks, Peak{
				Index:     i,
				Channel:   frame.Channels[i],
				Frequency: frame.FrequencyMHz(i),
				Strength:  s,
			})
		}
	}
	return peaks
}

// MaxRSSI returns the strongest channel
func MaxRSSI(frame *Frame) (index int, channel uint8, strength uint8) {
	if len(frame.Raw) == 0 {
		return -1, 0, 0
	}

	maxIdx := 0
	for i := range frame.Raw {
		if frame.Strength(i) > frame.Strength(maxIdx) {
			maxIdx = i
		}
	}
	return maxIdx, frame.Channels[maxIdx], frame.Strength(maxIdx)
}

// MinRSSI returns the weakest channel (noise floor)
func MinRSSI(frame *Frame) (index int, channel uint8, strength uint8) {
	if len(frame.Raw) == 0 {
		return -1, 0, 0
	}

	minIdx := 0
	for i := range frame.Raw {
		if frame.Strength(i) < frame.Strength(minIdx) {
			minIdx = i
		}
	}
	return minIdx, frame.Channels[minIdx], frame.Strength(minIdx)
}

// AverageRSSI calculates the average strength across all channels
func AverageRSSI(frame *Frame) float64 {
	if len(frame.Raw) == 0 {
		return 0
	}

	var sum int
	for i := range frame.Raw {
		sum += int(frame.Strength(i))
	}
	return float64(sum) / float64(len(frame.Raw))
}

// Spread returns the difference between the strongest and weakest channel
func Spread(frame *Frame) uint8 {
	_, _, hi := MaxRSSI(frame)
	_, _, lo := MinRSSI(frame)
	return hi - lo
}
