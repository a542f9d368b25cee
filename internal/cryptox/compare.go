package cryptox

import "crypto/subtle"

// ConstantTimeEqual reports whether a and b are equal, visiting the same
// number of bytes regardless of where a mismatch occurs and regardless of
// whether the lengths differ.
//
// The comparison runs over virtual buffers padded to max(len(a), len(b)),
// XOR-accumulating differences; the length-equality flag is folded into the
// final accumulator check rather than short-circuiting with an early return.
// A length mismatch therefore still pays the full pass and always yields
// false.
func ConstantTimeEqual(a, b []byte) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}

	var acc byte
	for i := 0; i < n; i++ {
		var x, y byte
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		acc |= x ^ y
	}

	sameLen := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	return subtle.ConstantTimeByteEq(acc, 0)&sameLen == 1
}
