package record

import (
	"encoding/binary"
	"math"
)

// Checksum returns the unsigned 8-bit wraparound sum of b.
func Checksum(b []byte) uint8 {
	var sum uint8
	for _, c := range b {
		sum += c
	}
	return sum
}

// Float32FromBig reinterprets the first 4 bytes of b as a big-endian IEEE-754 float.
func Float32FromBig(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

// PutFloat32Big writes f into the first 4 bytes of b as big-endian IEEE-754.
func PutFloat32Big(b []byte, f float32) {
	binary.BigEndian.PutUint32(b, math.Float32bits(f))
}

func int64FromBig(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func putInt64Big(b []byte, v int64) {
	binary.BigEndian.PutUint64(b, uint64(v))
}

func int32FromBig(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b))
}

func putInt32Big(b []byte, v int32) {
	binary.BigEndian.PutUint32(b, uint32(v))
}

func int16FromBig(b []byte) int16 {
	return int16(binary.BigEndian.Uint16(b))
}

func putInt16Big(b []byte, v int16) {
	binary.BigEndian.PutUint16(b, uint16(v))
}
