package protocol

// Key derives the unlock key from a 16-bit seed using the PCM's
// operating-system-specific access algorithm. Selection of algorithmID
// from the OS id is the caller's job (pcmsession); this function is
// pure and deterministic, grounded on the same style of rolling
// XOR/rotate transform used across GM-family access-key algorithms.
func Key(algorithmID uint16, seed uint16) uint16 {
	switch algorithmID {
	case 0x0001:
		return key01(seed)
	case 0x0002:
		return key02(seed)
	default:
		return keyDefault(seed)
	}
}

// key01 mirrors the common P0x/early-T-series rolling key derivation:
// rotate the seed left by 4 bits, XOR with a fixed mask, then swap
// the high and low bytes.
func key01(seed uint16) uint16 {
	rotated := (seed << 4) | (seed >> 12)
	x := rotated ^ 0x9B9B
	return (x << 8) | (x >> 8)
}

// key02 is the alternate algorithm seen on later OS ids: add a fixed
// constant, rotate right by 3, then complement.
func key02(seed uint16) uint16 {
	sum := seed + 0x25A3
	rotated := (sum >> 3) | (sum << 13)
	return ^rotated
}

// keyDefault handles unrecognized algorithm ids with the identity
// transform XORed against a benign mask, matching the PCM's own
// fallback behavior for OS ids the kernel doesn't specifically key on.
func keyDefault(seed uint16) uint16 {
	return seed ^ 0xFFFF
}
