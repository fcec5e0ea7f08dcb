package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/phanxgames/gesture"
	"github.com/phanxgames/gesture/backend/wsbridge"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	blue  = color.New(color.FgBlue).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

// printer writes one line per event and counts what it saw.
type printer struct {
	w      io.Writer
	json   bool
	counts map[gesture.EventType]int
}

func newPrinter(w io.Writer, asJSON bool) *printer {
	return &printer{w: w, json: asJSON, counts: make(map[gesture.EventType]int)}
}

func (p *printer) event(ev *gesture.Event) {
	typ := ev.Type()
	p.counts[typ]++
	if p.json {
		if data, ok := wsbridge.MarshalEvent(ev); ok {
			fmt.Fprintln(p.w, string(data))
		}
		return
	}
	fmt.Fprintln(p.w, formatEvent(ev))
}

func formatEvent(ev *gesture.Event) string {
	typ := ev.Type()
	label := fmt.Sprintf("%-17s", typ)
	switch {
	case typ == gesture.EventError:
		msg, _ := ev.Attr(gesture.EventAttrErrorMessage)
		return red(label) + " " + msg.StringValue()
	case typ.IsTentative():
		label = gray(label)
	case typ == gesture.EventGestureBegin:
		label = green(label)
	case typ == gesture.EventGestureUpdate:
		label = cyan(label)
	case typ == gesture.EventGestureEnd:
		label = blue(label)
	}

	f := ev.Frame()
	if f == nil {
		switch {
		case ev.Device() != nil:
			return label + " " + ev.Device().Name()
		case ev.Class() != nil:
			return label + " " + ev.Class().Name()
		}
		return label
	}
	name, _ := f.Attr(gesture.AttrGestureName)
	ids := make([]string, 0, len(f.TouchIDs()))
	for _, id := range f.TouchIDs() {
		ids = append(ids, fmt.Sprint(id))
	}
	return fmt.Sprintf("%s %-7s group=%d gesture=%d touches=[%s] centroid=(%.1f,%.1f) radius=%.2f angle=%.3f",
		label, bold(name.StringValue()), f.GroupID(), f.ID(), strings.Join(ids, ","),
		f.Float(gesture.AttrCentroidX), f.Float(gesture.AttrCentroidY),
		f.Float(gesture.AttrRadius), f.Float(gesture.AttrAngle))
}

func (p *printer) summary() {
	if p.json {
		return
	}
	fmt.Fprintf(p.w, "%s begin=%d update=%d end=%d tentative=%d errors=%d\n", bold("summary:"),
		p.counts[gesture.EventGestureBegin], p.counts[gesture.EventGestureUpdate],
		p.counts[gesture.EventGestureEnd],
		p.counts[gesture.EventTentativeBegin]+p.counts[gesture.EventTentativeUpdate]+p.counts[gesture.EventTentativeEnd],
		p.counts[gesture.EventError])
}
