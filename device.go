package gesture

// defaultUnitsPerMetre is assumed for devices that report no resolution:
// one device unit per millimetre.
const defaultUnitsPerMetre = 1000

// DeviceInfo describes an input device as reported by a backend.
// Resolutions are in device units per metre.
type DeviceInfo struct {
	ID               DeviceID
	Name             string
	Touches          int  // maximum simultaneous contacts, 0 if unknown
	DirectTouch      bool // touchscreen rather than touchpad
	IndependentTouch bool
	MinX, MaxX       float64
	MinY, MaxY       float64
	ResX, ResY       float64
	Attrs            []Attr // backend-specific extras
}

func (d DeviceInfo) unitsPerMetre() float64 {
	switch {
	case d.ResX > 0 && d.ResY > 0:
		return (d.ResX + d.ResY) / 2
	case d.ResX > 0:
		return d.ResX
	case d.ResY > 0:
		return d.ResY
	}
	return defaultUnitsPerMetre
}

func (d DeviceInfo) attrs() Attrs {
	l := Attrs{
		StringAttr(DeviceAttrName, d.Name),
		IntAttr(DeviceAttrID, int64(d.ID)),
		IntAttr(DeviceAttrTouches, int64(d.Touches)),
		BoolAttr(DeviceAttrDirectTouch, d.DirectTouch),
		BoolAttr(DeviceAttrIndependentTouch, d.IndependentTouch),
		FloatAttr(DeviceAttrMinX, d.MinX),
		FloatAttr(DeviceAttrMaxX, d.MaxX),
		FloatAttr(DeviceAttrResX, d.ResX),
		FloatAttr(DeviceAttrMinY, d.MinY),
		FloatAttr(DeviceAttrMaxY, d.MaxY),
		FloatAttr(DeviceAttrResY, d.ResY),
	}
	return append(l, d.Attrs...)
}

// Device is the consumer-visible, reference-counted view of an input device.
// It is immutable; removal of the device by its backend only drops the
// engine's own reference.
type Device struct {
	object[Device]
	id    DeviceID
	name  string
	attrs Attrs
}

// Ref adds a reference that keeps the device readable.
func (d *Device) Ref() error { return d.addRef() }

// ID returns the device id, or AllDevices once released.
func (d *Device) ID() DeviceID {
	if !d.alive("ID") {
		return AllDevices
	}
	return d.id
}

// Name returns the device name.
func (d *Device) Name() string {
	if !d.alive("Name") {
		return ""
	}
	return d.name
}

// Attrs returns the device capability attributes.
func (d *Device) Attrs() Attrs {
	if !d.alive("Attrs") {
		return nil
	}
	return d.attrs
}

// Attr looks up one device attribute by name.
func (d *Device) Attr(name string) (Attr, bool) {
	return d.Attrs().ByName(name)
}

// deviceState is the engine's private record of a connected device: its
// capabilities, live touches and open groups.
type deviceState struct {
	info    DeviceInfo
	attrs   Attrs
	obj     *Device
	touches touchModel
	removed bool
}

func (e *Engine) newDevice(info DeviceInfo) *deviceState {
	ds := &deviceState{info: info, attrs: info.attrs()}
	ds.touches.init()
	d := &Device{id: info.ID, name: info.Name, attrs: ds.attrs}
	d.bind(e.objs.devices, d)
	ds.obj = d
	return ds
}

// maxCardinality caps group size for this device: the widest touch count
// any active subscription asks for, limited by the device's contact count.
func (ds *deviceState) maxCardinality(want int) int {
	if ds.info.Touches > 0 && ds.info.Touches < want {
		return ds.info.Touches
	}
	return want
}
