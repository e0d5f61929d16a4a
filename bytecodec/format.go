/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bytecodec

import "fmt"

// SampleFormat describes one linear-PCM encoding: bit depth plus byte order.
// AES67 media only ever carries big-endian L16/L24/L32, but the host side
// may want little-endian or native for its own buffers.
type SampleFormat struct {
	BitDepth  int  // 16, 24 or 32
	BigEndian bool
}

// BytesPerSample returns the on-wire size of one sample in this format.
func (f SampleFormat) BytesPerSample() int {
	return f.BitDepth / 8
}

func (f SampleFormat) String() string {
	order := "le"
	if f.BigEndian {
		order = "be"
	}
	return fmt.Sprintf("s%d%s", f.BitDepth, order)
}

// WireFormat builds the AES67 on-wire format for a given bit depth (L16,
// L24, L32), always big-endian.
func WireFormat(bitDepth int) SampleFormat {
	return SampleFormat{BitDepth: bitDepth, BigEndian: true}
}

// ReadSample decodes one sample at b[:f.BytesPerSample()] into a signed
// 32-bit integer, sign-extended from its original bit depth and not rescaled.
func ReadSample(b []byte, f SampleFormat) int32 {
	switch f.BitDepth {
	case 16:
		if f.BigEndian {
			return int32(int16(uint16(b[0])<<8 | uint16(b[1])))
		}
		return int32(int16(uint16(b[1])<<8 | uint16(b[0])))
	case 24:
		return ReadInt24(b, f.BigEndian).Int32()
	case 32:
		var u uint32
		if f.BigEndian {
			u = uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		} else {
			u = uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])
		}
		return int32(u)
	default:
		panic(fmt.Sprintf("bytecodec: unsupported bit depth %d", f.BitDepth))
	}
}

// WriteSample encodes a signed 32-bit sample into b[:f.BytesPerSample()].
func WriteSample(b []byte, v int32, f SampleFormat) {
	switch f.BitDepth {
	case 16:
		u := uint16(int16(v))
		if f.BigEndian {
			b[0] = byte(u >> 8)
			b[1] = byte(u)
		} else {
			b[0] = byte(u)
			b[1] = byte(u >> 8)
		}
	case 24:
		WriteInt24(b, Int24(v), f.BigEndian)
	case 32:
		u := uint32(v)
		if f.BigEndian {
			b[0] = byte(u >> 24)
			b[1] = byte(u >> 16)
			b[2] = byte(u >> 8)
			b[3] = byte(u)
		} else {
			b[0] = byte(u)
			b[1] = byte(u >> 8)
			b[2] = byte(u >> 16)
			b[3] = byte(u >> 24)
		}
	default:
		panic(fmt.Sprintf("bytecodec: unsupported bit depth %d", f.BitDepth))
	}
}

// Transcode converts interleaved PCM samples in src (encoded as srcFormat)
// into dst (encoded as dstFormat), returning the number of samples
// processed. dst must hold at least as many samples as src.
func Transcode(dst, src []byte, channels int, srcFormat, dstFormat SampleFormat) int {
	srcStep := srcFormat.BytesPerSample()
	dstStep := dstFormat.BytesPerSample()
	n := len(src) / srcStep
	if m := len(dst) / dstStep; m < n {
		n = m
	}
	for i := 0; i < n; i++ {
		v := ReadSample(src[i*srcStep:], srcFormat)
		WriteSample(dst[i*dstStep:], v, dstFormat)
	}
	return n
}

// Deinterleave splits an interleaved buffer of the given channel count into
// one contiguous int32 slice per channel.
func Deinterleave(src []byte, channels int, format SampleFormat) [][]int32 {
	step := format.BytesPerSample()
	frames := len(src) / (step * channels)
	out := make([][]int32, channels)
	for c := range out {
		out[c] = make([]int32, frames)
	}
	for frame := 0; frame < frames; frame++ {
		for c := 0; c < channels; c++ {
			off := (frame*channels + c) * step
			out[c][frame] = ReadSample(src[off:], format)
		}
	}
	return out
}

// Interleave packs per-channel int32 slices back into an interleaved byte
// buffer in the given format.
func Interleave(dst []byte, channels [][]int32, format SampleFormat) int {
	if len(channels) == 0 {
		return 0
	}
	step := format.BytesPerSample()
	frames := len(channels[0])
	for frame := 0; frame < frames; frame++ {
		for c, ch := range channels {
			off := (frame*len(channels) + c) * step
			if off+step > len(dst) {
				return frame
			}
			WriteSample(dst[off:], ch[frame], format)
		}
	}
	return frames
}
