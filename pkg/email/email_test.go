package email

import (
	"context"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	msg := string(BuildMessage("alerts@example.com", "ops@example.com", "[ERROR] Batch Alert:\nlow", "line1\nline2"))

	require.True(t, strings.HasPrefix(msg, "From: alerts@example.com\r\nTo: ops@example.com\r\n"))
	require.Contains(t, msg, "Subject: [ERROR] Batch Alert: low\r\n")
	require.Contains(t, msg, "\r\n\r\nline1\r\nline2\r\n")
}

func TestBuildMessageSanitizesAddressHeaders(t *testing.T) {
	msg := string(BuildMessage("alerts@example.com\r\nBcc: x@evil.com", "ops@example.com\nCc: y@evil.com", "s", "b"))

	require.NotContains(t, msg, "\r\nBcc:")
	require.NotContains(t, msg, "\r\nCc:")
	require.Contains(t, msg, "From: alerts@example.com  Bcc: x@evil.com\r\n")
	require.Contains(t, msg, "To: ops@example.com Cc: y@evil.com\r\n")
}

func TestSendValidates(t *testing.T) {
	srv := Server{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p"}
	err := Send(context.Background(), srv, "not-an-address", "s", "b")
	require.ErrorContains(t, err, "invalid email address")

	err = Send(context.Background(), srv, "ops@example.com\r\nRCPT TO:<x@evil.com>", "s", "b")
	require.ErrorContains(t, err, "invalid email address")

	err = Send(context.Background(), Server{}, "ops@example.com", "s", "b")
	require.ErrorContains(t, err, "missing Email configuration")
}

func listen(t *testing.T) (net.Listener, Server) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	addr := ln.Addr().(*net.TCPAddr)
	return ln, Server{Host: "127.0.0.1", Port: addr.Port, Username: "alerts@example.com", Password: "p"}
}

func TestSendDeliversOverSMTP(t *testing.T) {
	ln, srv := listen(t)
	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 localhost ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			switch strings.ToUpper(strings.SplitN(line, " ", 2)[0]) {
			case "EHLO", "HELO":
				_ = tp.PrintfLine("250 localhost")
			case "MAIL", "RCPT":
				_ = tp.PrintfLine("250 OK")
			case "DATA":
				_ = tp.PrintfLine("354 go ahead")
				data, _ := tp.ReadDotBytes()
				received <- string(data)
				_ = tp.PrintfLine("250 queued")
			case "QUIT":
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("500 unknown command")
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, Send(ctx, srv, "ops@example.com", "[WARNING] Batch Alert: high errors", "body"))

	select {
	case data := <-received:
		require.Contains(t, data, "To: ops@example.com")
		require.Contains(t, data, "Subject: [WARNING] Batch Alert: high errors")
	case <-time.After(time.Second):
		t.Fatal("message not received")
	}
}

func TestSendGivesUpOnSilentServer(t *testing.T) {
	ln, srv := listen(t)
	held := make(chan net.Conn, 1)
	go func() {
		// accept and never greet
		if conn, err := ln.Accept(); err == nil {
			held <- conn
		}
	}()
	t.Cleanup(func() {
		select {
		case conn := <-held:
			_ = conn.Close()
		default:
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := Send(ctx, srv, "ops@example.com", "s", "b")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 2*time.Second)
}
