package message

// CalcBlockSum computes the 16-bit unsigned wrap-around sum of
// bytes[4:len-2], the span covered by the block checksum invariant
// (spec §3, §4.1). It does not look at the trailing checksum bytes
// themselves.
func CalcBlockSum(b []byte) uint16 {
	if len(b) < 6 {
		return 0
	}
	var sum uint16
	for _, v := range b[4 : len(b)-2] {
		sum += uint16(v)
	}
	return sum
}

// AppendBlockSum writes the big-endian block checksum into the last two
// bytes of b and returns b. It only does this when b looks like a
// well-formed length-prefixed block frame: len(b) > 6 and
// len(b) == declaredPayloadLength + 12, where the declared length lives
// in b[5]<<8 | b[6] (spec §4.1). Any other shape is returned unchanged.
func AppendBlockSum(b []byte) []byte {
	if len(b) <= 6 {
		return b
	}
	declared := int(b[5])<<8 | int(b[6])
	if len(b) != declared+12 {
		return b
	}
	sum := CalcBlockSum(b)
	b[len(b)-2] = byte(sum >> 8)
	b[len(b)-1] = byte(sum)
	return b
}

// VerifyBlockSum reports whether the trailing two bytes of b equal the
// checksum of bytes[4:len-2]. Used to validate inbound block-data frames
// and in round-trip tests.
func VerifyBlockSum(b []byte) bool {
	if len(b) < 6 {
		return false
	}
	sum := CalcBlockSum(b)
	return b[len(b)-2] == byte(sum>>8) && b[len(b)-1] == byte(sum)
}
