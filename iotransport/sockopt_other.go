// File: iotransport/sockopt_other.go
//go:build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package iotransport

import "net"

func setLinuxSockOpts(conn *net.TCPConn) {}
