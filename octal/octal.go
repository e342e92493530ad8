/*
 * dt550ctl - Convert octal words to strings.
 *
 * Copyright 2026, dt550ctl contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package octal formats PDP-1 style octal words, the natural notation
// for an 18-bit machine, the way util/hex formats hex words for S/370.
package octal

import "strings"

var octMap = "01234567"

// FormatWord writes each of word as six octal digits separated by a
// space, e.g. "777777 000001 ".
func FormatWord(str *strings.Builder, word []uint32) {
	for _, full := range word {
		shift := 15
		for range 6 {
			str.WriteByte(octMap[(full>>shift)&0x7])
			shift -= 3
		}
		str.WriteByte(' ')
	}
}

// FormatDigits writes the low n*3 bits of value as n octal digits,
// without padding or separators.
func FormatDigits(str *strings.Builder, value uint32, n int) {
	shift := (n - 1) * 3
	for i := 0; i < n; i++ {
		str.WriteByte(octMap[(value>>uint(shift))&0x7])
		shift -= 3
	}
}

// FormatLine writes a line position as a plain decimal count followed
// by "L", e.g. "36000L" — line counts are not octal quantities.
func FormatLine(str *strings.Builder, lines int64) {
	if lines < 0 {
		str.WriteByte('-')
		lines = -lines
	}
	FormatDecimal(str, lines)
	str.WriteByte('L')
}

// FormatDecimal writes n in decimal with no leading zeros.
func FormatDecimal(str *strings.Builder, n int64) {
	if n == 0 {
		str.WriteByte('0')
		return
	}
	var digits [20]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	str.Write(digits[i:])
}
