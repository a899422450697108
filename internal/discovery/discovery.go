// Package discovery lets a host announce an open session on the LAN
// and lets a joiner enumerate the hosts currently visible.
//
// Hosts answer LOOKUP probes and also announce unsolicited once a
// second, so a passive scanner converges without probing. A host that
// vanishes without notice simply stops broadcasting and expires from
// peer tables.
package discovery

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrAlreadyHosting = errors.New("already hosting")

const DefaultPort = 12121
const DefaultExpiry = 5 * time.Second

const defaultAnnounceEvery = 1 * time.Second
const defaultProbeEvery = 2 * time.Second

var probePacket = []byte("RPS-LOOKUP")
var announcePrefix = []byte("RPS-HOST")

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
)

// Advertisement describes one host offering a game.
type Advertisement struct {
	HostID string `msgpack:"host_id"`
	Name   string `msgpack:"name"`
	Port   int    `msgpack:"port"` // TCP session port
	Rounds int    `msgpack:"rounds"`
	Status Status `msgpack:"status"`
}

// Options tune ports and intervals; zero values pick defaults. Target
// overrides the broadcast destination, mainly for loopback tests.
type Options struct {
	Port          int
	AnnounceEvery time.Duration
	ProbeEvery    time.Duration
	Expiry        time.Duration
	Target        string
}

func (o Options) withDefaults() Options {
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.Port < 0 {
		// Negative selects an ephemeral port, used by loopback tests.
		o.Port = 0
	}
	if o.AnnounceEvery <= 0 {
		o.AnnounceEvery = defaultAnnounceEvery
	}
	if o.ProbeEvery <= 0 {
		o.ProbeEvery = defaultProbeEvery
	}
	if o.Expiry <= 0 {
		o.Expiry = DefaultExpiry
	}
	return o
}

func encodeAnnounce(ad Advertisement) ([]byte, error) {
	body, err := msgpack.Marshal(ad)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, announcePrefix...), body...), nil
}

func decodeAnnounce(pkt []byte) (Advertisement, bool) {
	if !bytes.HasPrefix(pkt, announcePrefix) {
		return Advertisement{}, false
	}
	var ad Advertisement
	if err := msgpack.Unmarshal(pkt[len(announcePrefix):], &ad); err != nil {
		return Advertisement{}, false
	}
	return ad, true
}

// LocalIPv4 finds the first non-loopback IPv4 address, the address a
// peer on the LAN would reach us at.
func LocalIPv4() (net.IP, *net.IPNet, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, nil, err
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4, ipnet, nil
		}
	}
	return nil, nil, errors.New("no usable IPv4 interface")
}

// broadcastTarget derives the directed broadcast address for the local
// subnet, falling back to the limited broadcast address.
func broadcastTarget(port int) string {
	ip, ipnet, err := LocalIPv4()
	if err != nil {
		return fmt.Sprintf("%s:%d", net.IPv4bcast, port)
	}
	mask := ipnet.Mask
	bcast := make(net.IP, len(ip))
	for i := range ip {
		bcast[i] = ip[i] | ^mask[i]
	}
	return fmt.Sprintf("%s:%d", bcast, port)
}
