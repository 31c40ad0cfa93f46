// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"coolsup/internal/control"
)

// RegisterIO is the pluggable wire-level capability a PLC transport needs:
// read a contiguous block of holding registers, write a contiguous block.
// Kept narrow so a real fieldbus/Modbus client library can be dropped in
// behind it without PLCTransport changing; no such client exists in this
// module's dependency stack today, so PLCTransport's own default wiring
// (below) speaks a minimal framed TCP register protocol directly over
// net.Conn rather than pulling in an unused driver.
type RegisterIO interface {
	ReadRegisters(ctx context.Context, start, count uint16) ([]uint16, error)
	WriteRegisters(ctx context.Context, start uint16, values []uint16) error
}

// Register layout: seven temperature channels, one pressure channel, one
// engine-load channel, each as a fixed-point value (value*10) in one
// 16-bit register; then three (frequency*10, count) pairs for the VFD
// groups, in control.Groups order.
const (
	regTelemetryStart = 0
	regTelemetryCount = 9
	regCommandStart   = 100
)

// PLCTransport implements Adapter over a RegisterIO, translating the
// domain TelemetryFrame/CommandFrame to and from fixed-point register
// values.
type PLCTransport struct {
	io  RegisterIO
	fix float64 // fixed-point scale, 10 for one decimal place
}

// NewPLCTransport builds a PLCTransport over io.
func NewPLCTransport(io RegisterIO) *PLCTransport {
	return &PLCTransport{io: io, fix: 10}
}

// Read implements Adapter.
func (p *PLCTransport) Read(ctx context.Context) (control.TelemetryFrame, error) {
	regs, err := p.io.ReadRegisters(ctx, regTelemetryStart, regTelemetryCount)
	if err != nil {
		return control.TelemetryFrame{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if len(regs) != regTelemetryCount {
		return control.TelemetryFrame{}, fmt.Errorf("%w: expected %d registers, got %d", ErrTransport, regTelemetryCount, len(regs))
	}
	frame := control.TelemetryFrame{
		T1:            p.fromFixed(regs[0]),
		T2:            p.fromFixed(regs[1]),
		T3:            p.fromFixed(regs[2]),
		T4:            p.fromFixed(regs[3]),
		T5:            p.fromFixed(regs[4]),
		T6:            p.fromFixed(regs[5]),
		T7:            p.fromFixed(regs[6]),
		PX1:           p.fromFixed(regs[7]),
		EngineLoadPct: p.fromFixed(regs[8]),
		CaptureNanos:  time.Now().UnixNano(),
	}
	if err := frame.Validate(); err != nil {
		return control.TelemetryFrame{}, fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}
	return frame, nil
}

// Write implements Adapter.
func (p *PLCTransport) Write(ctx context.Context, cmd control.CommandFrame) error {
	values := make([]uint16, 0, len(control.Groups)*2)
	for _, g := range control.Groups {
		gc := cmd.Commands[g]
		values = append(values, p.toFixed(gc.FrequencyHz), uint16(gc.Count))
	}
	if err := p.io.WriteRegisters(ctx, regCommandStart, values); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// Close implements Adapter; closing the underlying RegisterIO, if it
// supports it, is the caller's responsibility since RegisterIO does not
// require a Close method (some implementations are stateless).
func (p *PLCTransport) Close() error { return nil }

func (p *PLCTransport) fromFixed(v uint16) float64 { return float64(v) / p.fix }
func (p *PLCTransport) toFixed(v float64) uint16   { return uint16(v * p.fix) }

// TCPRegisterIO is a minimal length-prefixed binary register protocol over
// a persistent TCP connection: a stand-in wire format for a real fieldbus
// driver, kept deliberately small since no Modbus/OPC-UA client is part of
// this module's dependency stack.
type TCPRegisterIO struct {
	conn net.Conn
}

// DialTCPRegisterIO connects to a PLC gateway at addr.
func DialTCPRegisterIO(ctx context.Context, addr string) (*TCPRegisterIO, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return &TCPRegisterIO{conn: conn}, nil
}

// ReadRegisters implements RegisterIO: writes a 6-byte request (opcode 1,
// start, count) and reads count*2 bytes of response.
func (t *TCPRegisterIO) ReadRegisters(ctx context.Context, start, count uint16) ([]uint16, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetDeadline(deadline)
	}
	req := make([]byte, 6)
	req[0] = 1
	binary.BigEndian.PutUint16(req[2:4], start)
	binary.BigEndian.PutUint16(req[4:6], count)
	if _, err := t.conn.Write(req); err != nil {
		return nil, err
	}
	resp := make([]byte, int(count)*2)
	if _, err := readFull(t.conn, resp); err != nil {
		return nil, err
	}
	out := make([]uint16, count)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(resp[i*2 : i*2+2])
	}
	return out, nil
}

// WriteRegisters implements RegisterIO.
func (t *TCPRegisterIO) WriteRegisters(ctx context.Context, start uint16, values []uint16) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetDeadline(deadline)
	}
	req := make([]byte, 6+len(values)*2)
	req[0] = 2
	binary.BigEndian.PutUint16(req[2:4], start)
	binary.BigEndian.PutUint16(req[4:6], uint16(len(values)))
	for i, v := range values {
		binary.BigEndian.PutUint16(req[6+i*2:8+i*2], v)
	}
	_, err := t.conn.Write(req)
	return err
}

// Close closes the underlying connection.
func (t *TCPRegisterIO) Close() error { return t.conn.Close() }

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
