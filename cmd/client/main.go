package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/gookit/color"

	"github.com/hongjun500/chat-relay/internal/transport"
)

func main() {
	var (
		addr     = flag.String("addr", "127.0.0.1:55555", "server address")
		name     = flag.String("name", "", "nickname (prompted when empty)")
		framingS = flag.String("framing", "raw", "framing: raw|line|length")
	)
	flag.Parse()

	framing, err := transport.ParseFraming(*framingS)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	stdin := bufio.NewScanner(os.Stdin)
	nickname := strings.TrimSpace(*name)
	for nickname == "" {
		fmt.Print("Set user name :")
		if !stdin.Scan() {
			os.Exit(1)
		}
		nickname = strings.TrimSpace(stdin.Text())
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		color.Red.Printf("dial %s: %v\n", *addr, err)
		os.Exit(1)
	}
	stream := transport.NewStream(conn, transport.Options{Framing: framing})
	defer stream.Close()

	go func() {
		for {
			msg, err := stream.ReadMessage()
			if err != nil {
				color.Red.Printf("connection closed: %s\n", transport.Classify(err))
				os.Exit(1)
			}
			printMessage(stream, nickname, string(msg))
		}
	}()

	for stdin.Scan() {
		line := stdin.Text()
		if line == "" {
			continue
		}
		if err := stream.WriteMessage([]byte(nickname + " : " + line)); err != nil {
			color.Red.Printf("send failed: %v\n", err)
			os.Exit(1)
		}
	}
}

func printMessage(stream transport.Stream, nickname, msg string) {
	switch {
	case msg == transport.NickPrompt:
		_ = stream.WriteMessage([]byte(nickname))
	case msg == transport.Confirmation:
		color.Green.Println(msg)
	case strings.HasSuffix(msg, " has joined in room"), strings.HasSuffix(msg, " left !!!"):
		color.Yellow.Println(msg)
	default:
		fmt.Println(msg)
	}
}
