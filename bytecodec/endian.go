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

// Package bytecodec implements the buffer view, endian-aware sample
// read/write, int24 packed sample type, and audio byte-order/interleaving
// transcoder used by the RTP receive pipeline to turn wire-format PCM into
// host-format audio buffers.
package bytecodec

import (
	"encoding/binary"
	"unsafe"
)

// HostOrder is the byte order native to the running process, detected once
// at package init.
var HostOrder binary.ByteOrder

// IsBigEndian reports whether HostOrder is big-endian.
var IsBigEndian bool

func init() {
	var i uint16 = 1
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0 {
		HostOrder = binary.BigEndian
		IsBigEndian = true
	} else {
		HostOrder = binary.LittleEndian
		IsBigEndian = false
	}
}
