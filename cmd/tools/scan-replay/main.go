//go:build pcap
// +build pcap

// Command scan-replay replays recorded scan datagrams from a pcap capture to
// a running monitor, preserving the original inter-packet timing. Build with
// the 'pcap' tag (requires libpcap).
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

var (
	pcapFile = flag.String("pcap", "", "Capture file with scan datagrams")
	udpPort  = flag.Int("port", 8308, "UDP port the scan frames were captured on")
	target   = flag.String("target", "127.0.0.1:8308", "Address to replay frames to")
	rate     = flag.Float64("rate", 1.0, "Replay speed multiplier")
)

func main() {
	flag.Parse()
	if *pcapFile == "" {
		log.Fatal("-pcap is required")
	}
	if *rate <= 0 {
		log.Fatal("-rate must be positive")
	}

	handle, err := pcap.OpenOffline(*pcapFile)
	if err != nil {
		log.Fatalf("failed to open capture %s: %v", *pcapFile, err)
	}
	defer handle.Close()

	filter := fmt.Sprintf("udp port %d", *udpPort)
	if err := handle.SetBPFFilter(filter); err != nil {
		log.Fatalf("failed to set BPF filter %q: %v", filter, err)
	}

	addr, err := net.ResolveUDPAddr("udp", *target)
	if err != nil {
		log.Fatalf("failed to resolve target: %v", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		log.Fatalf("failed to dial target: %v", err)
	}
	defer conn.Close()

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	var (
		sent     int
		lastSeen time.Time
		start    = time.Now()
	)
	for packet := range source.Packets() {
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp := udpLayer.(*layers.UDP)
		if int(udp.DstPort) != *udpPort {
			continue
		}

		// Reproduce capture timing, scaled by the rate multiplier.
		stamp := packet.Metadata().Timestamp
		if !lastSeen.IsZero() {
			gap := stamp.Sub(lastSeen)
			if gap > 0 {
				time.Sleep(time.Duration(float64(gap) / *rate))
			}
		}
		lastSeen = stamp

		if _, err := conn.Write(udp.Payload); err != nil {
			log.Fatalf("failed to send datagram: %v", err)
		}
		sent++
	}

	log.Printf("replayed %d datagrams in %v", sent, time.Since(start).Round(time.Millisecond))
}
