// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package sysmem reports how much memory the process may use, for sizing
// caches.
package sysmem

import (
	"math"
	"runtime/debug"
)

// fallback is used when the platform does not report physical memory.
const fallback = 4 << 30

// Max returns the memory ceiling for this process: the smallest of the Go
// soft memory limit (GOMEMLIMIT), the address-space rlimit and physical
// memory.
func Max() int64 {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 {
		limit = math.MaxInt64
	}
	if phys := physical(); phys > 0 && phys < limit {
		limit = phys
	}
	if limit == math.MaxInt64 {
		limit = fallback
	}
	return limit
}
