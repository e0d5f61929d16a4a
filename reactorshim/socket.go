/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package reactorshim implements the UDP socket helpers the reactor needs:
// multicast join/leave, SO_REUSEADDR, kernel receive-timestamp capture and
// destination-address recovery via IP_PKTINFO, generalized from PTP's event
// socket (facebook-time's timestamp package) to any UDP socket the RTP
// receiver or a PTP port opens. Linux-only, same as the teacher's
// timestamp_linux.go.
package reactorshim

import (
	"fmt"
	"net"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MulticastSocket is a raw UDP socket with SO_REUSEADDR, SW receive
// timestamping and IP_PKTINFO/IPV6_RECVPKTINFO enabled, ready to join
// multicast groups.
type MulticastSocket struct {
	fd     int
	isIPv6 bool
}

// ListenMulticast opens a UDP socket bound to port on every local address,
// configured for kernel timestamping and destination-address recovery.
func ListenMulticast(isIPv6 bool, port int) (*MulticastSocket, error) {
	family := unix.AF_INET
	if isIPv6 {
		family = unix.AF_INET6
	}
	fd, err := unix.Socket(family, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("reactorshim: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactorshim: SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TIMESTAMPNS, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactorshim: SO_TIMESTAMPNS: %w", err)
	}
	if isIPv6 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_RECVPKTINFO, 1); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("reactorshim: IPV6_RECVPKTINFO: %w", err)
		}
		if err := unix.Bind(fd, &unix.SockaddrInet6{Port: port}); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("reactorshim: bind: %w", err)
		}
	} else {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_PKTINFO, 1); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("reactorshim: IP_PKTINFO: %w", err)
		}
		if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("reactorshim: bind: %w", err)
		}
	}
	return &MulticastSocket{fd: fd, isIPv6: isIPv6}, nil
}

// JoinGroup joins the socket to a multicast group on the named interface.
func (s *MulticastSocket) JoinGroup(group net.IP, ifIndex int) error {
	if s.isIPv6 {
		mreq := &unix.IPv6Mreq{Interface: uint32(ifIndex)}
		copy(mreq.Multiaddr[:], group.To16())
		return unix.SetsockoptIPv6Mreq(s.fd, unix.IPPROTO_IPV6, unix.IPV6_JOIN_GROUP, mreq)
	}
	mreqn := &unix.IPMreqn{Ifindex: int32(ifIndex)}
	copy(mreqn.Multiaddr[:], group.To4())
	return unix.SetsockoptIPMreqn(s.fd, unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreqn)
}

// LeaveGroup leaves a previously-joined multicast group.
func (s *MulticastSocket) LeaveGroup(group net.IP, ifIndex int) error {
	if s.isIPv6 {
		mreq := &unix.IPv6Mreq{Interface: uint32(ifIndex)}
		copy(mreq.Multiaddr[:], group.To16())
		return unix.SetsockoptIPv6Mreq(s.fd, unix.IPPROTO_IPV6, unix.IPV6_LEAVE_GROUP, mreq)
	}
	mreqn := &unix.IPMreqn{Ifindex: int32(ifIndex)}
	copy(mreqn.Multiaddr[:], group.To4())
	return unix.SetsockoptIPMreqn(s.fd, unix.IPPROTO_IP, unix.IP_DROP_MEMBERSHIP, mreqn)
}

// Close closes the underlying socket.
func (s *MulticastSocket) Close() error {
	return unix.Close(s.fd)
}

// FD returns the raw file descriptor.
func (s *MulticastSocket) FD() int {
	return s.fd
}

// Datagram is one received UDP packet, with the destination address and
// receive timestamp recovered from ancillary control data when the kernel
// supplied them.
type Datagram struct {
	Payload     []byte
	Source      net.IP
	SourcePort  int
	Destination net.IP
	ReceivedAt  time.Time
	KernelTime  bool
}

// ReadFrom reads one datagram into buf, parsing ancillary control messages
// for the kernel timestamp and destination address. If the kernel didn't
// supply one, ReceivedAt is left zero and the caller should substitute the
// reactor's own timestamp.
func (s *MulticastSocket) ReadFrom(buf []byte) (*Datagram, error) {
	oob := make([]byte, 512)
	n, oobn, _, from, err := unix.Recvmsg(s.fd, buf, oob, 0)
	if err != nil {
		return nil, err
	}
	dg := &Datagram{Payload: buf[:n]}
	switch addr := from.(type) {
	case *unix.SockaddrInet4:
		dg.Source = net.IP(addr.Addr[:])
		dg.SourcePort = addr.Port
	case *unix.SockaddrInet6:
		dg.Source = net.IP(addr.Addr[:])
		dg.SourcePort = addr.Port
	}
	parseAncillary(oob[:oobn], dg)
	return dg, nil
}

func parseAncillary(oob []byte, dg *Datagram) {
	cmsgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return
	}
	for _, c := range cmsgs {
		switch {
		case c.Header.Level == unix.SOL_SOCKET && c.Header.Type == unix.SCM_TIMESTAMPNS:
			if ts, ok := parseTimespec(c.Data); ok {
				dg.ReceivedAt = ts
				dg.KernelTime = true
			}
		case c.Header.Level == unix.IPPROTO_IP && c.Header.Type == unix.IP_PKTINFO:
			if ip, ok := parsePktinfoV4(c.Data); ok {
				dg.Destination = ip
			}
		case c.Header.Level == unix.IPPROTO_IPV6 && c.Header.Type == unix.IPV6_PKTINFO:
			if ip, ok := parsePktinfoV6(c.Data); ok {
				dg.Destination = ip
			}
		}
	}
}

func parseTimespec(data []byte) (time.Time, bool) {
	if len(data) < int(unsafe.Sizeof(unix.Timespec{})) {
		return time.Time{}, false
	}
	ts := *(*unix.Timespec)(unsafe.Pointer(&data[0]))
	return time.Unix(int64(ts.Sec), int64(ts.Nsec)), true
}

func parsePktinfoV4(data []byte) (net.IP, bool) {
	if len(data) < 12 {
		return nil, false
	}
	// struct in_pktinfo { int ipi_ifindex; struct in_addr ipi_spec_dst; struct in_addr ipi_addr; }
	return net.IPv4(data[8], data[9], data[10], data[11]), true
}

func parsePktinfoV6(data []byte) (net.IP, bool) {
	if len(data) < 20 {
		return nil, false
	}
	// struct in6_pktinfo { struct in6_addr ipi6_addr; int ipi6_ifindex; }
	ip := make(net.IP, 16)
	copy(ip, data[0:16])
	return ip, true
}
