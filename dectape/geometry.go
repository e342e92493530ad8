/*
 * dt550ctl - Type 550/555 DECtape geometry constants.
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

// Package dectape models the motion and command state engine of a Type
// 550/555 DECtape controller with eight attached transports.
package dectape

// Format selects the on-tape word width a unit was formatted for.
type Format int

const (
	Format18B Format = iota // 256 words/block, 578 blocks
	Format16B                // same geometry as 18B, zero-extended on load
	Format12B                // 86 words/block, 1474 blocks
)

func (f Format) String() string {
	switch f {
	case Format18B:
		return "18b"
	case Format16B:
		return "16b"
	case Format12B:
		return "12b"
	default:
		return "unknown"
	}
}

// Mask18 is the set of all 18 data bits, 0o777777 octal.
const Mask18 = 0o777777

const (
	// LineTime, AccelTime and DecelTime are default scheduler-time
	// constants, all expressed in the same logical time units. A zero
	// value for any of these is invalid and must be rejected by config.
	LineTime  = 12
	AccelTime = 54000
	DecelTime = 72000

	// EndZoneLines is the length, in lines, of the leader and trailer
	// end zones at each end of the tape.
	EndZoneLines = 36000

	// TapeWordSize is the physical line pitch of one tape word,
	// independent of the logical word width a unit is formatted for.
	// The real controller reads and writes the medium at this fixed
	// rate; 12b format only changes how words are packed to and from
	// the backing file (see tapeimage), never the physical timing.
	TapeWordSize = 6

	// HeaderTrailerLines is the length, in lines, of the header and
	// of the trailer bracketing every block (5 words at TapeWordSize).
	HeaderTrailerLines = 30

	// BlockNumberLineOffset and ChecksumLineOffset are the fixed line
	// offsets, within a header/trailer, of the forward block-number and
	// reverse-checksum-placeholder words.
	BlockNumberLineOffset = 6
	ChecksumLineOffset    = 24

	// HeaderTrailerWords, BlockNumberWord and ChecksumWord are the
	// above expressed as word indices into a header/trailer.
	HeaderTrailerWords = HeaderTrailerLines / TapeWordSize // 5
	BlockNumberWord    = BlockNumberLineOffset / TapeWordSize // 1
	ChecksumWord       = ChecksumLineOffset / TapeWordSize    // 4

	// BlockSize18B/TapeBlocks18B and BlockSize12B/TapeBlocks12B are the
	// per-format data words per block and blocks per tape.
	BlockSize18B  = 256
	TapeBlocks18B = 578
	BlockSize12B  = 86
	TapeBlocks12B = 1474

	// File12BWordsPerBlock is the number of packed 12-bit file words
	// that correspond to one 86-word (18b) tape block: 3 twelve-bit
	// values pack into every 2 tape words.
	File12BWordsPerBlock = (BlockSize12B * 3) / 2 // 129
)

// Geometry is the per-unit layout derived from a unit's format.
type Geometry struct {
	BlockSize      int // data words per block
	BlockCount     int // blocks on the tape
	LinesPerBlock  int // header + data + trailer, in lines
	ForwardEndZone int // line position where the forward end zone begins
	Capacity       int // total addressable data words in the backing buffer
}

func geometryFor(format Format) Geometry {
	blockSize, blockCount := BlockSize18B, TapeBlocks18B
	if format == Format12B {
		blockSize, blockCount = BlockSize12B, TapeBlocks12B
	}
	linesPerBlock := 2*HeaderTrailerLines + blockSize*TapeWordSize
	return Geometry{
		BlockSize:      blockSize,
		BlockCount:     blockCount,
		LinesPerBlock:  linesPerBlock,
		ForwardEndZone: EndZoneLines + linesPerBlock*blockCount,
		Capacity:       blockSize * blockCount,
	}
}

// blockLineStart returns the line position of the first header word of
// block, which may legally equal g.BlockCount to name the forward end
// zone boundary itself.
func blockLineStart(g Geometry, block int) int64 {
	return int64(EndZoneLines) + int64(block)*int64(g.LinesPerBlock)
}

// Zone classifies a line position as lying in the reverse end zone, the
// recorded data region, or the forward end zone.
type Zone int

const (
	ZoneReverse Zone = iota
	ZoneData
	ZoneForward
)

// classify returns the block number and the line offset within that
// block's header/data/trailer span for pos, plus which zone pos falls
// in. Block and relpos are only meaningful when zone is ZoneData.
func (g Geometry) classify(pos int64) (block int, relpos int, zone Zone) {
	switch {
	case pos < EndZoneLines:
		return 0, 0, ZoneReverse
	case pos >= int64(g.ForwardEndZone):
		return 0, 0, ZoneForward
	default:
		off := pos - EndZoneLines
		return int(off / int64(g.LinesPerBlock)), int(off % int64(g.LinesPerBlock)), ZoneData
	}
}
