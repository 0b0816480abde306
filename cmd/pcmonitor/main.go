// Command pcmonitor presses a PC's power switch on MQTT command and reports
// the state of its power LED.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
