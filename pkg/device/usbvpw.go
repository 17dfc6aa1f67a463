package device

import (
	"context"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/gmflash/pcmflash/pkg/message"
	"github.com/gmflash/pcmflash/pkg/protocol"
)

// USBDevice talks to a VPW interface exposed as a USB bulk-transfer
// device rather than a virtual serial port (some pass-through
// interfaces skip the CDC-ACM layer entirely).
type USBDevice struct {
	vendor, product gousb.ID

	ctx      *gousb.Context
	dev      *gousb.Device
	intf     *gousb.Interface
	intfDone func()
	in       *gousb.InEndpoint
	out      *gousb.OutEndpoint

	mu             sync.Mutex
	speed          protocol.VpwSpeed
	supports4      bool
	maxSend        int
	currentTimeout time.Duration
	closeOnce      sync.Once
}

// NewUSBDevice returns a USBDevice bound to the given vendor/product
// id pair. It does not open the link; call Initialize.
func NewUSBDevice(vendor, product uint16, supports4x bool, maxSendSize int) *USBDevice {
	return &USBDevice{
		vendor:         gousb.ID(vendor),
		product:        gousb.ID(product),
		supports4:      supports4x,
		maxSend:        maxSendSize,
		currentTimeout: timeoutFor(TimeoutRead),
	}
}

func (d *USBDevice) Initialize() bool {
	d.ctx = gousb.NewContext()
	dev, err := d.ctx.OpenDeviceWithVIDPID(d.vendor, d.product)
	if err != nil || dev == nil {
		return false
	}
	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		return false
	}
	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		return false
	}

	in, err := intf.InEndpoint(1)
	if err != nil {
		done()
		dev.Close()
		return false
	}
	out, err := intf.OutEndpoint(1)
	if err != nil {
		done()
		dev.Close()
		return false
	}

	d.dev = dev
	d.intf = intf
	d.intfDone = done
	d.in = in
	d.out = out
	return true
}

func (d *USBDevice) SendFrame(msg *message.Message) bool {
	if d.out == nil {
		return false
	}
	_, err := d.out.Write(msg.Bytes())
	return err == nil
}

func (d *USBDevice) ReceiveFrame() (*message.Message, bool) {
	if d.in == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.currentTimeout)
	defer cancel()
	buf := make([]byte, 256)
	n, err := d.in.ReadContext(ctx, buf)
	if err != nil || n == 0 {
		return nil, false
	}
	return message.New(append([]byte{}, buf[:n]...)), true
}

func (d *USBDevice) SetSpeed(speed protocol.VpwSpeed) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speed = speed
}

func (d *USBDevice) ClearQueue() {
	if d.in == nil {
		return
	}
	buf := make([]byte, 256)
	for {
		n, err := d.in.Read(buf)
		if err != nil || n == 0 {
			return
		}
	}
}

func (d *USBDevice) SetTimeout(scenario TimeoutScenario) {
	d.currentTimeout = timeoutFor(scenario)
}

func (d *USBDevice) SupportsFourX() bool { return d.supports4 }
func (d *USBDevice) MaxSendSize() int    { return d.maxSend }

func (d *USBDevice) Dispose() {
	d.closeOnce.Do(func() {
		if d.intfDone != nil {
			d.intfDone()
		}
		if d.dev != nil {
			d.dev.Close()
		}
		if d.ctx != nil {
			d.ctx.Close()
		}
	})
}
