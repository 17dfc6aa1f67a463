// Package transaction implements the bounded-retry request/response
// policy shared by every PCM exchange. It never interprets a frame; it
// only decides when to give up.
package transaction

import (
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/gmflash/pcmflash/pkg/device"
	"github.com/gmflash/pcmflash/pkg/message"
	"github.com/gmflash/pcmflash/pkg/protocol"
)

// RetryDelay is the fixed pause between send/receive attempts.
const RetryDelay = 10 * time.Millisecond

// maxChatterSkip bounds how many stray device-present/tester-present
// frames SendRequest will discard while waiting for the real response
// to a single send, so a noisy bus can't turn one retry attempt into
// an unbounded read loop.
const maxChatterSkip = 4

// SendRequest sends msg on dev and waits for a response, retrying up
// to retries times with a fixed delay between attempts. It returns the
// first received frame that isn't routine bus chatter, and true, or
// nil and false once retries are exhausted.
func SendRequest(dev device.Device, msg *message.Message, retries uint) (*message.Message, bool) {
	var result *message.Message

	err := retry.Do(
		func() error {
			if !dev.SendFrame(msg) {
				return errSendFailed
			}
			for i := 0; i < maxChatterSkip; i++ {
				frame, ok := dev.ReceiveFrame()
				if !ok {
					return errNoResponse
				}
				if protocol.IsChatterFrame(frame) {
					continue
				}
				result = frame
				return nil
			}
			return errNoResponse
		},
		retry.Attempts(retries+1),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(RetryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, false
	}
	return result, true
}

var (
	errSendFailed = retryError("send failed")
	errNoResponse = retryError("no response")
)

type retryError string

func (e retryError) Error() string { return string(e) }
