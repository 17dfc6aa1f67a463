package device

import (
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/gmflash/pcmflash/pkg/message"
	"github.com/gmflash/pcmflash/pkg/protocol"
)

// SerialBaud1x and SerialBaud4x are the line rates an AVT/ELM-style VPW
// interface switches between for 1x and 4x bus speed.
const (
	SerialBaud1x = 62500
	SerialBaud4x = 250000
)

// SerialDevice talks to a VPW-over-serial interface (AVT-852 family and
// compatible clones). It reads the link continuously on a background
// goroutine and reassembles frames by quiet gap: VPW carries no length
// prefix, so a port read that times out (200 ms with no new bytes)
// while bytes are pending marks a frame boundary.
type SerialDevice struct {
	portName string

	mu        sync.Mutex
	port      serial.Port
	speed     protocol.VpwSpeed
	maxSend   int
	supports4 bool

	frames         chan *message.Message
	stop           chan struct{}
	closeOnce      sync.Once
	currentTimeout time.Duration
}

// NewSerialDevice returns a SerialDevice bound to portName. It does not
// open the link; call Initialize.
func NewSerialDevice(portName string, supports4x bool, maxSendSize int) *SerialDevice {
	return &SerialDevice{
		portName:       portName,
		supports4:      supports4x,
		maxSend:        maxSendSize,
		frames:         make(chan *message.Message, 64),
		stop:           make(chan struct{}),
		currentTimeout: timeoutFor(TimeoutRead),
	}
}

func (d *SerialDevice) Initialize() bool {
	mode := &serial.Mode{
		BaudRate: SerialBaud1x,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
		DataBits: 8,
	}
	p, err := serial.Open(d.portName, mode)
	if err != nil {
		return false
	}
	d.mu.Lock()
	d.port = p
	d.speed = protocol.OneX
	d.mu.Unlock()

	p.SetReadTimeout(200 * time.Millisecond)
	go d.readLoop()
	return true
}

func (d *SerialDevice) readLoop() {
	buf := make([]byte, 256)
	var acc []byte
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		d.mu.Lock()
		p := d.port
		d.mu.Unlock()
		if p == nil {
			return
		}

		n, err := p.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			// Read timeout with nothing pending: the gap that
			// delimits a frame.
			if len(acc) > 0 {
				d.deliver(acc)
				acc = nil
			}
			continue
		}
		acc = append(acc, buf[:n]...)
	}
}

func (d *SerialDevice) deliver(b []byte) {
	frame := message.New(append([]byte{}, b...))
	select {
	case d.frames <- frame:
	default:
		// Receiver is behind; drop the oldest to make room rather
		// than blocking the read loop.
		select {
		case <-d.frames:
		default:
		}
		d.frames <- frame
	}
}

func (d *SerialDevice) SendFrame(msg *message.Message) bool {
	d.mu.Lock()
	p := d.port
	d.mu.Unlock()
	if p == nil {
		return false
	}
	_, err := p.Write(msg.Bytes())
	return err == nil
}

func (d *SerialDevice) ReceiveFrame() (*message.Message, bool) {
	select {
	case f := <-d.frames:
		return f, true
	case <-time.After(d.currentTimeout):
		return nil, false
	}
}

func (d *SerialDevice) SetSpeed(speed protocol.VpwSpeed) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil || d.speed == speed {
		d.speed = speed
		return
	}
	baud := SerialBaud1x
	if speed == protocol.FourX {
		baud = SerialBaud4x
	}
	_ = d.port.SetMode(&serial.Mode{BaudRate: baud, Parity: serial.NoParity, StopBits: serial.OneStopBit, DataBits: 8})
	d.speed = speed
}

func (d *SerialDevice) ClearQueue() {
	for {
		select {
		case <-d.frames:
		default:
			return
		}
	}
}

func (d *SerialDevice) SetTimeout(scenario TimeoutScenario) {
	d.currentTimeout = timeoutFor(scenario)
}

func (d *SerialDevice) SupportsFourX() bool { return d.supports4 }
func (d *SerialDevice) MaxSendSize() int    { return d.maxSend }

func (d *SerialDevice) Dispose() {
	d.closeOnce.Do(func() {
		close(d.stop)
		d.mu.Lock()
		p := d.port
		d.port = nil
		d.mu.Unlock()
		if p != nil {
			p.Close()
		}
	})
}
