package wave

// Int16Sample is a 16-bits signed integer audio sample.
type Int16Sample int16

func (s Int16Sample) Int() int64 {
	return int64(s) << 16
}

// Int16Interleaved multi-channel interlaced Audio.
type Int16Interleaved struct {
	Data []int16
	Size ChunkInfo
}

// ChunkInfo returns audio chunk size.
func (a *Int16Interleaved) ChunkInfo() ChunkInfo {
	return a.Size
}

func (a *Int16Interleaved) SampleFormat() SampleFormat {
	return Int16SampleFormat
}

func (a *Int16Interleaved) At(i, ch int) Sample {
	return Int16Sample(a.Data[i*a.Size.Channels+ch])
}

func (a *Int16Interleaved) Set(i, ch int, s Sample) {
	a.Data[i*a.Size.Channels+ch] = int16(Int16SampleFormat.Convert(s).(Int16Sample))
}

func (a *Int16Interleaved) SetInt16(i, ch int, s Int16Sample) {
	a.Data[i*a.Size.Channels+ch] = int16(s)
}

// Clone returns a deep copy of the chunk. Readers that keep a chunk beyond
// the next Read must clone it, since sources may reuse their buffers.
func (a *Int16Interleaved) Clone() *Int16Interleaved {
	data := make([]int16, len(a.Data))
	copy(data, a.Data)
	return &Int16Interleaved{Data: data, Size: a.Size}
}

// Peak returns the largest absolute sample value across all channels.
func (a *Int16Interleaved) Peak() int16 {
	var peak int16
	for _, s := range a.Data {
		if s < 0 {
			if s == -32768 {
				return 32767
			}
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

func NewInt16Interleaved(size ChunkInfo) *Int16Interleaved {
	return &Int16Interleaved{
		Data: make([]int16, size.Channels*size.Len),
		Size: size,
	}
}
