package safe

import (
	"RTHub/logger"
)

// Go starts a goroutine that recovers from panic, so a misbehaving
// handler cannot take the whole process down. The name shows up in the
// recovery log line.
func Go(name string, f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] %s panic recovered: %v", name, r)
			}
		}()
		f()
	}()
}

// Run invokes f inline with panic recovery. Used inside long-lived
// loops where one bad message must not kill the loop.
func Run(name string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[safe.Run] %s panic recovered: %v", name, r)
		}
	}()
	f()
}
