package slave

// ReceiveFunc is called after a write transaction committed count bytes
// to the receive buffer starting at address.
type ReceiveFunc func(address, count int)

// TransmitFunc is called when a master addresses the slave for reading,
// before the byte at address is loaded. It may refresh the transmit buffer.
type TransmitFunc func(address int)

func noopReceive(int, int) {}

func noopTransmit(int) {}

// dispatcher holds the user callbacks. The interrupt handler reads the
// fields without synchronization; they are only replaced while idle.
type dispatcher struct {
	receive  ReceiveFunc
	transmit TransmitFunc
}

func (d *dispatcher) reset() {
	d.receive = noopReceive
	d.transmit = noopTransmit
}

func (d *dispatcher) setReceive(fn ReceiveFunc) {
	if fn == nil {
		fn = noopReceive
	}
	d.receive = fn
}

func (d *dispatcher) setTransmit(fn TransmitFunc) {
	if fn == nil {
		fn = noopTransmit
	}
	d.transmit = fn
}
