package udp

import (
	"errors"
	"net"
	"testing"

	"opticsight/internal/aim"
	"opticsight/internal/rangefinder"
	"opticsight/internal/screen"
)

type fakeConn struct {
	writes    [][]byte
	writeErr  error
	closed    bool
	writeHits int
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.writeHits++
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	cp := append([]byte(nil), p...)
	c.writes = append(c.writes, cp)
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestNewSender_DialsResolvedAddr(t *testing.T) {
	var gotNetwork string
	var gotRaddr *net.UDPAddr
	fc := &fakeConn{}

	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		gotNetwork = network
		gotRaddr = raddr
		return fc, nil
	}

	s, err := newSender("127.0.0.1:4001", net.ResolveUDPAddr, dial)
	if err != nil {
		t.Fatalf("newSender() error: %v", err)
	}
	if gotNetwork != "udp" {
		t.Fatalf("network=%q want %q", gotNetwork, "udp")
	}
	if gotRaddr == nil || gotRaddr.Port != 4001 || !gotRaddr.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Fatalf("raddr=%v want 127.0.0.1:4001", gotRaddr)
	}
	if err := s.Close(); err != nil || !fc.closed {
		t.Fatalf("close err=%v closed=%t", err, fc.closed)
	}
}

func TestNewSender_ResolveFailure(t *testing.T) {
	resolveErr := errors.New("nope")
	resolve := func(network, address string) (*net.UDPAddr, error) {
		return nil, resolveErr
	}
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return &fakeConn{}, nil
	}
	if _, err := newSender("bad:addr", resolve, dial); !errors.Is(err, resolveErr) {
		t.Fatalf("err=%v want %v", err, resolveErr)
	}
}

func TestSender_Send_EmptyNoWrite(t *testing.T) {
	fc := &fakeConn{}
	s := &Sender{dest: "x", conn: fc}
	if err := s.Send(nil); err != nil {
		t.Fatalf("Send(nil) error: %v", err)
	}
	if fc.writeHits != 0 {
		t.Fatalf("expected no writes, got %d", fc.writeHits)
	}
}

func TestSender_Send_PropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	s := &Sender{dest: "x", conn: &fakeConn{writeErr: wantErr}}
	if err := s.Send([]byte{0x01}); !errors.Is(err, wantErr) {
		t.Fatalf("err=%v want %v", err, wantErr)
	}
}

func TestSender_SendSolution(t *testing.T) {
	fc := &fakeConn{}
	s := &Sender{dest: "x", conn: fc}
	sol := aim.Solution{
		Seq:      7,
		Distance: rangefinder.DistanceFromCM(9144),
		Locked:   true,
		Pixel:    screen.PixelOffset{X: 1, Y: -3, OnScreen: true},
	}
	if err := s.SendSolution(sol, 3); err != nil {
		t.Fatalf("SendSolution() error: %v", err)
	}
	want := `{"seq":7,"x":1,"y":-3,"on_screen":true,"distance_cm":9144,"locked":true,"battery_bars":3}`
	if len(fc.writes) != 1 || string(fc.writes[0]) != want {
		t.Fatalf("writes=%q want %q", fc.writes, want)
	}
}

func TestFrameFromSolution_Sentinels(t *testing.T) {
	cases := []struct {
		d    rangefinder.Distance
		want int
	}{
		{d: rangefinder.DisconnectedDistance(), want: -1},
		{d: rangefinder.MaxRangeDistance(), want: 18000},
	}
	for _, tc := range cases {
		f := FrameFromSolution(aim.Solution{Distance: tc.d}, 0)
		if f.DistanceCM != tc.want {
			t.Fatalf("distance=%s cm=%d want %d", tc.d, f.DistanceCM, tc.want)
		}
	}
}

func TestSender_Close_NilConnNoPanic(t *testing.T) {
	s := &Sender{}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}
