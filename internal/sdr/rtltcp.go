package sdr

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cwsl/voicescan/internal/buffer"
	"github.com/cwsl/voicescan/internal/scanerr"
)

// rtl_tcp command bytes, per the wire protocol osmocom's rtl_tcp
// server implements: a 1-byte command id followed by a 4-byte
// big-endian parameter.
const (
	cmdSetFrequency  byte = 0x01
	cmdSetSampleRate byte = 0x02
	cmdSetGainMode   byte = 0x03
	cmdSetGain       byte = 0x04
)

// RTLTCPOptions configures the network rtl_tcp driver. Validate before
// constructing a device from it, matching the corpus's own
// config-struct-then-Validate shape.
type RTLTCPOptions struct {
	Address      string
	SampleRateHz int
	GainTenthsDB int
	DialTimeout  time.Duration
}

// Validate checks the option fields are within range.
func (o RTLTCPOptions) Validate() error {
	if o.Address == "" {
		return fmt.Errorf("rtl_tcp: address must not be empty")
	}
	if o.SampleRateHz <= 0 {
		return fmt.Errorf("rtl_tcp: sample_rate_hz must be positive")
	}
	return nil
}

// RTLTCPDevice drives an rtl_tcp server (e.g. rtl_tcp itself, or a
// SoapySDR-backed bridge exposing the same protocol) over TCP.
type RTLTCPDevice struct {
	opts RTLTCPOptions
	conn net.Conn
}

// NewRTLTCP builds a device from validated options. The TCP connection
// is established lazily in Initialize.
func NewRTLTCP(opts RTLTCPOptions) (*RTLTCPDevice, error) {
	if err := opts.Validate(); err != nil {
		return nil, &scanerr.ConfigError{Field: "rtl_tcp", Err: err}
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return &RTLTCPDevice{opts: opts}, nil
}

func (d *RTLTCPDevice) Initialize(ctx context.Context) error {
	dialer := net.Dialer{Timeout: d.opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", d.opts.Address)
	if err != nil {
		return &scanerr.IOError{Op: "dial", Err: err}
	}

	// rtl_tcp sends a 12-byte header on connect: magic, tuner type,
	// gain count. Drain it before issuing commands.
	header := make([]byte, 12)
	if _, err := io.ReadFull(conn, header); err != nil {
		conn.Close()
		return &scanerr.IOError{Op: "read_header", Err: err}
	}

	d.conn = conn
	return d.sendCommand(cmdSetSampleRate, uint32(d.opts.SampleRateHz))
}

func (d *RTLTCPDevice) Tune(ctx context.Context, frequencyHz uint64) error {
	if err := d.sendCommand(cmdSetFrequency, uint32(frequencyHz)); err != nil {
		return err
	}
	if d.opts.GainTenthsDB != 0 {
		if err := d.sendCommand(cmdSetGainMode, 1); err != nil {
			return err
		}
		if err := d.sendCommand(cmdSetGain, uint32(d.opts.GainTenthsDB)); err != nil {
			return err
		}
	}
	return nil
}

func (d *RTLTCPDevice) StartStream(ctx context.Context) error { return nil }
func (d *RTLTCPDevice) StopStream(ctx context.Context) error  { return nil }

// CaptureSamples reads n complex samples from the interleaved 8-bit
// unsigned I/Q stream, centering each byte at 0 (range [-1, 1]).
func (d *RTLTCPDevice) CaptureSamples(ctx context.Context, n int) ([]buffer.Sample, error) {
	if d.conn == nil {
		return nil, &scanerr.IOError{Op: "capture_samples", Err: fmt.Errorf("device not initialized")}
	}

	raw := make([]byte, n*2)
	if _, err := io.ReadFull(d.conn, raw); err != nil {
		return nil, &scanerr.IOError{Op: "capture_samples", Err: err}
	}

	out := make([]buffer.Sample, n)
	for i := 0; i < n; i++ {
		iVal := (float32(raw[2*i]) - 127.5) / 127.5
		qVal := (float32(raw[2*i+1]) - 127.5) / 127.5
		out[i] = buffer.Sample(complex(iVal, qVal))
	}
	return out, nil
}

func (d *RTLTCPDevice) Close() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

func (d *RTLTCPDevice) sendCommand(cmd byte, param uint32) error {
	if d.conn == nil {
		return &scanerr.IOError{Op: "send_command", Err: fmt.Errorf("device not initialized")}
	}
	packet := make([]byte, 5)
	packet[0] = cmd
	binary.BigEndian.PutUint32(packet[1:], param)
	if _, err := d.conn.Write(packet); err != nil {
		return &scanerr.IOError{Op: "send_command", Err: err}
	}
	return nil
}
