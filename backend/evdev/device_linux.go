//go:build linux

package evdev

import (
	"context"
	"log/slog"
	"os"
	"time"
	"unsafe"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/phanxgames/gesture"
)

// ioctl request encoding (Linux _IOC macro)
const (
	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	iocRead = 2
)

func ioc(dir, typ, nr, size uint32) uintptr {
	return uintptr(dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift)
}

func eviocgabs(code int) uintptr {
	return ioc(iocRead, 'E', uint32(0x40+code), uint32(unsafe.Sizeof(absInfo{})))
}

func eviocgprop(n int) uintptr { return ioc(iocRead, 'E', 0x09, uint32(n)) }

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// Options configure Open.
type Options struct {
	// ID is the engine device id; defaults to 1.
	ID gesture.DeviceID
	// Grab requests exclusive access so the events do not reach other
	// readers such as the display server.
	Grab bool
	// Clock, when set, stamps frames instead of the kernel event times, so
	// they share a timebase with other engine input such as Tick.
	Clock  func() time.Duration
	Logger *slog.Logger
}

// Device is an open evdev multitouch node.
type Device struct {
	dev   *evdev.InputDevice
	path  string
	info  gesture.DeviceInfo
	dec   *Decoder
	clock func() time.Duration
	log   *slog.Logger
}

// Open opens the device node at path and reads its multitouch capabilities.
func Open(path string, opts Options) (*Device, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	d := &Device{dev: dev, path: path, dec: NewDecoder(), clock: opts.Clock, log: opts.Logger}
	if d.log == nil {
		d.log = slog.Default()
	}
	if err := d.probe(opts.ID); err != nil {
		_ = dev.File.Close()
		return nil, err
	}
	if opts.Grab {
		if err := dev.Grab(); err != nil {
			_ = dev.File.Close()
			return nil, errors.Wrapf(err, "grab %s", path)
		}
	}
	d.log.Debug("evdev device opened", "path", path, "name", d.info.Name,
		"touches", d.info.Touches, "direct", d.info.DirectTouch)
	return d, nil
}

func (d *Device) probe(id gesture.DeviceID) error {
	fd := d.dev.File.Fd()
	var slots, x, y absInfo
	if err := ioctl(fd, eviocgabs(absMtPositionX), unsafe.Pointer(&x)); err != nil {
		return errors.Wrapf(err, "%s: no multitouch x axis", d.path)
	}
	if err := ioctl(fd, eviocgabs(absMtPositionY), unsafe.Pointer(&y)); err != nil {
		return errors.Wrapf(err, "%s: no multitouch y axis", d.path)
	}
	touches := 1
	if err := ioctl(fd, eviocgabs(absMtSlot), unsafe.Pointer(&slots)); err == nil {
		touches = int(slots.Max) + 1
	}

	// Without property bits the device is assumed to be a touchscreen.
	direct := true
	props := make([]byte, propBytes)
	if err := ioctl(fd, eviocgprop(len(props)), unsafe.Pointer(&props[0])); err == nil {
		direct = directTouch(props)
	} else {
		d.log.Debug("evdev properties unavailable", "path", d.path, "err", err)
	}

	name := d.dev.Name
	if name == "" {
		name = d.path
	}
	d.info = deviceInfo(id, name, x, y, touches, direct)
	return nil
}

// Info returns the capabilities read from the device.
func (d *Device) Info() gesture.DeviceInfo { return d.info }

// Close closes the device node.
func (d *Device) Close() error {
	if err := d.dev.File.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return errors.Wrapf(err, "close %s", d.path)
	}
	return nil
}

// Run announces the device to eng and pushes a frame for every SYN_REPORT
// until ctx is done or the device fails. The device is removed from eng on
// return. Without a Clock, frame times are relative to the first event read.
// Cancelling ctx closes the device node to unblock the pending read.
func (d *Device) Run(ctx context.Context, eng *gesture.Engine) error {
	if err := eng.AddDevice(d.info); err != nil {
		return errors.Wrap(err, "add device")
	}
	defer func() {
		_ = eng.RemoveDevice(d.info.ID)
	}()
	stop := context.AfterFunc(ctx, func() { _ = d.dev.File.Close() })
	defer stop()

	var base, last time.Duration
	started := false
	for {
		evs, err := d.dev.Read()
		switch {
		case ctx.Err() != nil:
			d.release(eng, last)
			return nil
		case errors.Is(err, unix.ENODEV):
			d.log.Warn("evdev device went away", "path", d.path)
			d.release(eng, last)
			return nil
		case err != nil:
			d.release(eng, last)
			return errors.Wrapf(err, "read %s", d.path)
		}

		for _, ev := range evs {
			switch t := eventTime(ev); {
			case d.clock != nil:
				last = d.clock()
			case !started:
				base, started = t, true
				last = 0
			default:
				last = t - base
			}
			deltas, ok := d.dec.Feed(ev)
			if !ok {
				continue
			}
			if err := eng.Push(gesture.InputFrame{Device: d.info.ID, Time: last, Touches: deltas}); err != nil {
				return errors.Wrap(err, "push frame")
			}
		}
	}
}

func (d *Device) release(eng *gesture.Engine, t time.Duration) {
	if deltas := d.dec.Release(); len(deltas) > 0 {
		_ = eng.Push(gesture.InputFrame{Device: d.info.ID, Time: t, Touches: deltas})
	}
}
