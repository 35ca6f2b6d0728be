package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"

	synchub "classreviews/internal/sync"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP feed address")
	raw := flag.Bool("raw", false, "print events as received")
	retry := flag.Duration("retry", time.Second, "reconnect delay")
	flag.Parse()

	for {
		if err := run(*addr, *raw, os.Stdout); err != nil {
			log.Printf("[sync-client] disconnected: %v", err)
		}
		time.Sleep(*retry)
	}
}

func run(addr string, raw bool, out io.Writer) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync-client] connected to %s", addr)
	return follow(conn, raw, out)
}

func follow(r io.Reader, raw bool, out io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Bytes()
		if raw {
			fmt.Fprintln(out, string(line))
			continue
		}
		fmt.Fprintln(out, describe(line))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

// describe renders one feed line as a short human-readable summary.
func describe(line []byte) string {
	var ev synchub.ReviewEvent
	if err := json.Unmarshal(line, &ev); err != nil || ev.Type == "" {
		return string(line)
	}

	at := ev.At.Local().Format("15:04:05")
	switch ev.Type {
	case synchub.EventCreated:
		if ev.Review != nil {
			return fmt.Sprintf("%s + [%s] %s: %s", at, ev.Review.Category, ev.Review.Nickname, ev.Review.Content)
		}
	case synchub.EventUpdated:
		if ev.Review != nil {
			return fmt.Sprintf("%s ~ %s edited: %s", at, ev.ReviewID, ev.Review.Content)
		}
	case synchub.EventReacted:
		return fmt.Sprintf("%s * %s reaction %s", at, ev.ReviewID, ev.Outcome)
	case synchub.EventDeleted:
		return fmt.Sprintf("%s - %s deleted", at, ev.ReviewID)
	}
	return fmt.Sprintf("%s %s %s", at, ev.Type, ev.ReviewID)
}
