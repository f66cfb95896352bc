// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package keys

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jeranaias/rigwrite/internal/stream"
)

// Interrupt returns a trigger fired by Ctrl-C (SIGINT) or SIGTERM. While
// registered, those signals no longer terminate the process.
func Interrupt() stream.Trigger {
	return stream.TriggerFunc(func(handler func()) func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		stop := make(chan struct{})
		go func() {
			select {
			case <-sigChan:
				handler()
			case <-stop:
			}
		}()

		var once sync.Once
		return func() {
			once.Do(func() {
				signal.Stop(sigChan)
				close(stop)
			})
		}
	})
}

// Any fans several triggers into one. Nil triggers are skipped; the
// returned unregister function releases all of them.
func Any(triggers ...stream.Trigger) stream.Trigger {
	return stream.TriggerFunc(func(handler func()) func() {
		var unregister []func()
		for _, t := range triggers {
			if t != nil {
				unregister = append(unregister, t.OnCancelEvent(handler))
			}
		}

		var once sync.Once
		return func() {
			once.Do(func() {
				for i := len(unregister) - 1; i >= 0; i-- {
					unregister[i]()
				}
			})
		}
	})
}
