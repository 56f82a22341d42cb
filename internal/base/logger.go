// Copyright 2011 The LevelDB-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import "log"

// Logger is the injectable sink for the degradation paths of ยง7: hash-index
// construction failure, properties parse failure, unknown property values.
// None of these fail Open; they are only observable through Logger.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// DefaultLogger writes through the standard library log package. It is
// used whenever Options.Logger is left nil.
var DefaultLogger Logger = defaultLogger{}

type defaultLogger struct{}

func (defaultLogger) Infof(format string, args ...interface{})  { log.Printf(format, args...) }
func (defaultLogger) Errorf(format string, args ...interface{}) { log.Printf(format, args...) }
