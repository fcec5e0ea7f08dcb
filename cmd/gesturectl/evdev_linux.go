//go:build linux

package main

import (
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/phanxgames/gesture"
	"github.com/phanxgames/gesture/backend/evdev"
)

func newEvdevCommand(c *cli) *cobra.Command {
	var grab bool
	cmd := &cobra.Command{
		Use:   "evdev DEVICE",
		Short: "Recognize gestures from a Linux multitouch device node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := c.newEngine(gesture.WithBackend("evdev"), gesture.WithTrackDevices(true))
			if err != nil {
				return err
			}
			defer eng.Close()

			start := time.Now()
			clock := func() time.Duration { return time.Since(start) }
			dev, err := evdev.Open(args[0], evdev.Options{Grab: grab, Clock: clock, Logger: eng.Logger()})
			if err != nil {
				return err
			}
			defer dev.Close()

			p := newPrinter(cmd.OutOrStdout(), false)
			eng.RegisterEventCallback(p.event)

			fdv, err := eng.Config(gesture.ConfigFD)
			if err != nil {
				return err
			}
			fd := fdv.(int)

			ctx := cmd.Context()
			errc := make(chan error, 1)
			go func() { errc <- dev.Run(ctx, eng) }()

			fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
			for {
				select {
				case err := <-errc:
					drain(eng)
					p.summary()
					return err
				default:
				}
				n, err := unix.Poll(fds, 50)
				if err != nil && err != unix.EINTR {
					return err
				}
				if n == 0 {
					_ = eng.Tick(clock())
				}
				drain(eng)
			}
		},
	}
	cmd.Flags().BoolVar(&grab, "grab", false, "take exclusive access to the device")
	return cmd
}
