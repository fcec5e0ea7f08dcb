// Package evdev feeds a gesture engine from a Linux multitouch input device
// speaking the slotted (type B) multitouch protocol. Devices are read through
// github.com/gvalkov/golang-evdev; the package is empty on other systems.
package evdev
