// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/ChinmayR/deptestglideA"
	"github.com/ChinmayR/deptestglideB"
)

type PointToDepTestGlideCv010 deptestglideA.CversionAny
type PointToDepTestGlideCv020 deptestglideB.Cversion2
