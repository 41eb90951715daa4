// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

/*
Package genotype defines the packed diploid genotype encoding and the Table
contract shared by every genotype storage backend and composition view.

A genotype cell is one byte. The high nibble is the first allele code and the
low nibble the second; codes index an allele-definition table (AlleleStates).
Nibble 0xF is an unknown allele and the byte 0xFF is a fully missing call.
For nucleotide data the codes are fixed:

  A=0x0 C=0x1 G=0x2 T=0x3 +=0x4 (insertion) -=0x5 (gap) Z=0xE (rare) N=0xF

A Table is a logical samples x sites grid of such cells. Backends (see
packages dense, h5 and hapmap) resolve cells from memory or storage; views
(package view) translate coordinates and delegate. Derived per-site
statistics are computed by package engine.
*/
package genotype
