//go:build !unix

package channel

import "net"

func rawRead(net.Conn, []byte) (int, bool, error) { return 0, false, nil }

func rawWrite(net.Conn, []byte) (int, bool, error) { return 0, false, nil }

func isWouldBlock(error) bool { return false }

func isPeerReset(error) bool { return false }
