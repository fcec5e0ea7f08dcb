package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/phanxgames/gesture"
)

func newVocabCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vocab",
		Short: "Print the gesture classes, event types, attributes and configuration keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := gesture.New(gesture.WithLogger(gesture.NewLogger(gesture.LogConfig{Level: "error"})))
			if err != nil {
				return err
			}
			defer eng.Close()
			printVocab(cmd.OutOrStdout(), eng)
			return nil
		},
	}
}

func printVocab(w io.Writer, eng *gesture.Engine) {
	section := func(title string) { fmt.Fprintln(w, bold(title)) }

	section("gesture classes")
	for _, c := range eng.Classes() {
		fmt.Fprintf(w, "  %-8s %d\n", c.Name(), c.ID())
	}

	section("event types")
	for _, t := range []gesture.EventType{
		gesture.EventDeviceAvailable, gesture.EventDeviceUnavailable,
		gesture.EventClassAvailable, gesture.EventClassChanged, gesture.EventClassUnavailable,
		gesture.EventGestureBegin, gesture.EventGestureUpdate, gesture.EventGestureEnd,
		gesture.EventTentativeBegin, gesture.EventTentativeUpdate, gesture.EventTentativeEnd,
		gesture.EventInitComplete, gesture.EventUserDefined, gesture.EventError,
	} {
		fmt.Fprintf(w, "  %-18s %d\n", t, int(t))
	}

	section("frame attributes")
	for _, a := range []string{
		gesture.AttrAngle, gesture.AttrAngleDelta, gesture.AttrAngularVelocity,
		gesture.AttrBoundingBoxX1, gesture.AttrBoundingBoxY1, gesture.AttrBoundingBoxX2, gesture.AttrBoundingBoxY2,
		gesture.AttrChildWindowID, gesture.AttrCentroidX, gesture.AttrCentroidY,
		gesture.AttrDeltaX, gesture.AttrDeltaY, gesture.AttrDeviceID, gesture.AttrEventWindowID,
		gesture.AttrFocusX, gesture.AttrFocusY, gesture.AttrGestureName,
		gesture.AttrPositionX, gesture.AttrPositionY, gesture.AttrRadialVelocity,
		gesture.AttrRadiusDelta, gesture.AttrRadius, gesture.AttrRootWindowID,
		gesture.AttrTapTime, gesture.AttrTimestamp, gesture.AttrTouches,
		gesture.AttrVelocityX, gesture.AttrVelocityY,
	} {
		fmt.Fprintf(w, "  %s\n", a)
	}
	for i := 0; ; i++ {
		id, x, y, ok := gesture.FrameTouchAttrs(i)
		if !ok {
			break
		}
		fmt.Fprintf(w, "  %s, %s, %s\n", id, x, y)
	}

	section("configuration keys")
	for _, k := range []string{
		gesture.ConfigFD, gesture.ConfigMaxEvents, gesture.ConfigAtomic,
		gesture.ConfigTentative, gesture.ConfigSynchronous,
		gesture.ConfigDragThreshold, gesture.ConfigDragTimeout,
		gesture.ConfigPinchThreshold, gesture.ConfigPinchTimeout,
		gesture.ConfigRotateThreshold, gesture.ConfigRotateTimeout,
		gesture.ConfigTapThreshold, gesture.ConfigTapTimeout,
	} {
		v, err := eng.Config(k)
		if err != nil {
			fmt.Fprintf(w, "  %-40s %s\n", k, gray("unsupported"))
			continue
		}
		fmt.Fprintf(w, "  %-40s %v\n", k, v)
	}
}
