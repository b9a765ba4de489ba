// Package udp feeds each cycle's solution to the display process.
package udp

import (
	"encoding/json"
	"fmt"
	"net"

	"opticsight/internal/aim"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type (
	resolveFunc func(network, address string) (*net.UDPAddr, error)
	dialFunc    func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)
)

type Sender struct {
	dest string
	conn udpConn
}

func NewSender(dest string) (*Sender, error) {
	return newSender(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newSender(dest string, resolve resolveFunc, dial dialFunc) (*Sender, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &Sender{dest: dest, conn: conn}, nil
}

func (s *Sender) Dest() string { return s.dest }

func (s *Sender) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := s.conn.Write(payload)
	return err
}

// DisplayFrame is the datagram the display draws from. DistanceCM carries
// the -1 and 18000 sentinels unchanged.
type DisplayFrame struct {
	Seq         uint64 `json:"seq"`
	X           int32  `json:"x"`
	Y           int32  `json:"y"`
	OnScreen    bool   `json:"on_screen"`
	DistanceCM  int    `json:"distance_cm"`
	Locked      bool   `json:"locked"`
	BatteryBars int    `json:"battery_bars"`
}

func FrameFromSolution(sol aim.Solution, batteryBars int) DisplayFrame {
	return DisplayFrame{
		Seq:         sol.Seq,
		X:           sol.Pixel.X,
		Y:           sol.Pixel.Y,
		OnScreen:    sol.Pixel.OnScreen,
		DistanceCM:  sol.Distance.CM(),
		Locked:      sol.Locked,
		BatteryBars: batteryBars,
	}
}

// SendSolution encodes one frame as compact JSON.
func (s *Sender) SendSolution(sol aim.Solution, batteryBars int) error {
	b, err := json.Marshal(FrameFromSolution(sol, batteryBars))
	if err != nil {
		return fmt.Errorf("udp: marshal frame: %w", err)
	}
	return s.Send(b)
}

func (s *Sender) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
