// Package znp talks to a Texas Instruments Z-Stack coprocessor over the
// Monitor and Test (MT) serial protocol.
//
// Frames have the layout
//
//	SOF(0xFE) | LEN | CMD0 | CMD1 | DATA[LEN] | FCS
//
// where FCS is the XOR of LEN through the last data byte. CMD0 carries the
// frame type in its top three bits and the subsystem in the rest.
//
// Conn owns the link: it decodes inbound frames on a read loop, serialises
// synchronous requests (the coprocessor accepts one SREQ at a time) and fans
// asynchronous frames out to registered callbacks. Radio builds the
// management primitives on top of Conn and satisfies mgmt.HAL and mgmt.ZDO.
//
// The link can be a local UART ("/dev/ttyACM0") or a TCP serial bridge
// ("tcp://192.168.1.20:6638").
package znp
