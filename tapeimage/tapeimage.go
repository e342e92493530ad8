/*
 * dt550ctl - DECtape image file transcoding.
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

// Package tapeimage implements dectape.Adapter: reading and writing
// DECtape image files in 18b, 16b and 12b on-disk word formats. The
// engine itself only ever sees 18-bit tape words; this package is
// where the three file layouts are reconciled, the way util/tape owned
// the teacher's on-disk block format.
package tapeimage

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/dtape/dt550ctl/dectape"
)

// Adapter reads and writes DECtape image files. The zero value is
// ready to use.
type Adapter struct{}

var _ dectape.Adapter = Adapter{}

// Load reads path into a buffer of capacity 18-bit words, according to
// format. A short or missing file is zero-padded up to capacity rather
// than treated as an error, matching how DECtape images are commonly
// distributed truncated at the last written block.
func (Adapter) Load(path string, format dectape.Format, capacity int) ([]uint32, int, error) {
	words := make([]uint32, capacity)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return words, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("tapeimage: open %s: %w", path, err)
	}
	defer f.Close()

	var hwmark int
	switch format {
	case dectape.Format12B:
		hwmark, err = load12B(f, words)
	case dectape.Format16B:
		hwmark, err = load16B(f, words)
	default:
		hwmark, err = load18B(f, words)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("tapeimage: read %s: %w", path, err)
	}
	return words, hwmark, nil
}

// Save writes the first hwmark words of words to path, according to
// format.
func (Adapter) Save(path string, words []uint32, hwmark int, format dectape.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tapeimage: create %s: %w", path, err)
	}
	defer f.Close()

	if hwmark > len(words) {
		hwmark = len(words)
	}
	data := words[:hwmark]

	switch format {
	case dectape.Format12B:
		err = save12B(f, data)
	case dectape.Format16B:
		err = save16B(f, data)
	default:
		err = save18B(f, data)
	}
	if err != nil {
		return fmt.Errorf("tapeimage: write %s: %w", path, err)
	}
	return nil
}

// load18B reads one raw little-endian uint32 per tape word.
func load18B(f *os.File, words []uint32) (int, error) {
	buf := make([]byte, 4)
	n := 0
	for n < len(words) {
		if _, err := f.Read(buf); err != nil {
			break
		}
		words[n] = binary.LittleEndian.Uint32(buf) & dectape.Mask18
		n++
	}
	return n, nil
}

func save18B(f *os.File, words []uint32) error {
	buf := make([]byte, 4)
	for _, w := range words {
		binary.LittleEndian.PutUint32(buf, w)
		if _, err := f.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// load16B reads one little-endian uint16 per tape word, zero-extended
// to 18 bits.
func load16B(f *os.File, words []uint32) (int, error) {
	buf := make([]byte, 2)
	n := 0
	for n < len(words) {
		if _, err := f.Read(buf); err != nil {
			break
		}
		words[n] = uint32(binary.LittleEndian.Uint16(buf))
		n++
	}
	return n, nil
}

func save16B(f *os.File, words []uint32) error {
	buf := make([]byte, 2)
	for _, w := range words {
		binary.LittleEndian.PutUint16(buf, uint16(w))
		if _, err := f.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// load12B reads File12BWordsPerBlock little-endian uint16 values (each
// holding a 12-bit value in its low bits) per block and unpacks them,
// three 12-bit file words into every two 18-bit tape words:
//
//	high = (w0 << 6) | (w1 >> 6)
//	low  = ((w1 & 0x3F) << 12) | w2
//
// An incomplete final group is zero-padded.
func load12B(f *os.File, words []uint32) (int, error) {
	group := make([]uint16, dectape.File12BWordsPerBlock)
	buf := make([]byte, 2)
	n := 0
	for n < len(words) {
		got := 0
		for got < len(group) {
			if _, err := f.Read(buf); err != nil {
				break
			}
			group[got] = binary.LittleEndian.Uint16(buf) & 0o7777
			got++
		}
		if got == 0 {
			break
		}
		for got < len(group) {
			group[got] = 0
			got++
		}
		for k := 0; k+2 < len(group) && n+1 < len(words); k += 3 {
			w0, w1, w2 := uint32(group[k]), uint32(group[k+1]), uint32(group[k+2])
			words[n] = (w0 << 6) | (w1 >> 6)
			words[n+1] = ((w1 & 0x3F) << 12) | w2
			n += 2
		}
	}
	return n, nil
}

// save12B is the inverse of load12B. An odd final word is packed with a
// zero partner.
func save12B(f *os.File, words []uint32) error {
	buf := make([]byte, 2)
	writeWord := func(v uint16) error {
		binary.LittleEndian.PutUint16(buf, v)
		_, err := f.Write(buf)
		return err
	}
	for i := 0; i < len(words); i += 2 {
		high := words[i]
		var low uint32
		if i+1 < len(words) {
			low = words[i+1]
		}
		w0 := uint16((high >> 6) & 0o7777)
		w1 := uint16(((high & 0o77) << 6) | ((low >> 12) & 0o77))
		w2 := uint16(low & 0o7777)
		if err := writeWord(w0); err != nil {
			return err
		}
		if err := writeWord(w1); err != nil {
			return err
		}
		if err := writeWord(w2); err != nil {
			return err
		}
	}
	return nil
}
