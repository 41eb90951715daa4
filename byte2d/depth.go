// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package byte2d

import (
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
)

// Read depths are stored one byte per allele. Depths up to 127 are exact,
// 128..182 are stored as negative bytes, and larger depths are stored on a
// log scale.
const (
	// DepthMissing is the decoded value of MissingDepthByte.
	DepthMissing = -1
	// MissingDepthByte marks an unknown depth.
	MissingDepthByte byte = 0x80

	depthLogBase  = 1.0746
	maxExactDepth = 182
	minExactByte  = 127 - maxExactDepth
	depthOffset   = 126
	depthAdjust   = 0.5
)

var (
	depthRLogConv = 1 / math.Log(depthLogBase)
	depthLogConv  = math.Log(depthLogBase)
	depthFromByte [256]int
)

func init() {
	for i := range depthFromByte {
		depthFromByte[i] = decodeDepth(int8(i))
	}
}

func decodeDepth(b int8) int {
	switch {
	case byte(b) == MissingDepthByte:
		return DepthMissing
	case b >= 0:
		return int(b)
	case int(b) >= minExactByte:
		return 127 - int(b)
	default:
		return depthOffset + int(math.Exp(-depthLogConv*(float64(b)-depthAdjust)))
	}
}

// DepthToByte encodes a read depth.
func DepthToByte(depth int) (byte, error) {
	switch {
	case depth == DepthMissing:
		return MissingDepthByte, nil
	case depth < 0:
		return 0, errors.E(errors.Invalid, fmt.Sprintf("negative depth %d", depth))
	case depth <= 127:
		return byte(depth), nil
	case depth <= maxExactDepth:
		return byte(int8(127 - depth)), nil
	}
	itd := int(-depthRLogConv * math.Log(float64(depth-depthOffset)))
	if itd < -127 {
		return 0x81, nil
	}
	return byte(int8(itd)), nil
}

// DepthFromByte decodes a stored depth.
func DepthFromByte(b byte) int { return depthFromByte[b] }

// DepthsFromBytes decodes a slice of stored depths.
func DepthsFromBytes(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = depthFromByte[v]
	}
	return out
}

// AddDepths returns the encoded sum of two encoded depths. A missing operand
// counts as zero; two missing operands stay missing.
func AddDepths(a, b byte) byte {
	da, db := DepthFromByte(a), DepthFromByte(b)
	switch {
	case da == DepthMissing && db == DepthMissing:
		return MissingDepthByte
	case da == DepthMissing:
		return b
	case db == DepthMissing:
		return a
	}
	sum, _ := DepthToByte(da + db)
	return sum
}
