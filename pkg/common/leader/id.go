// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package leader

import (
	"encoding/json"
	"errors"
	"net"
	"os"
	"time"

	"github.com/pborman/uuid"
)

// _masterIDTimeFormat prefixes master IDs with the election minute.
const _masterIDTimeFormat = "200601021504"

// ID is the value a candidate stores in the leader node so peers can
// locate the elected master.
type ID struct {
	Hostname string `json:"hostname"`
	IP       string `json:"ip"`
	HTTPPort int    `json:"http"`
	Version  string `json:"version"`
}

// NewID returns the leader node value for a master serving on httpPort.
func NewID(httpPort int, version string) (string, error) {
	ip, err := listenIP()
	if err != nil {
		return "", err
	}
	hostname, _ := os.Hostname()
	id := &ID{
		Hostname: hostname,
		IP:       ip.String(),
		HTTPPort: httpPort,
		Version:  version,
	}
	b, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// NewMasterID mints the identity a newly elected master uses as the prefix
// of every framework, slave and offer ID: the election minute followed by
// a fault tolerance ID unique to this term.
func NewMasterID(now time.Time) string {
	return now.Format(_masterIDTimeFormat) + "-" + uuid.New()
}

// scoreAddr scores how likely the given addr is to be a remote address.
// Any address which receives a negative score should not be used:
// -1 for unknown IP addresses, +300 for IPv4, +100 for non-local and an
// extra +100 for interfaces that are up.
func scoreAddr(iface net.Interface, addr net.Addr) (int, net.IP) {
	var ip net.IP
	if netAddr, ok := addr.(*net.IPNet); ok {
		ip = netAddr.IP
	} else if netIP, ok := addr.(*net.IPAddr); ok {
		ip = netIP.IP
	} else {
		return -1, nil
	}

	var score int
	if ip.To4() != nil {
		score += 300
	}
	if iface.Flags&net.FlagLoopback == 0 && !ip.IsLoopback() {
		score += 100
		if iface.Flags&net.FlagUp != 0 {
			score += 100
		}
	}
	return score, ip
}

// listenIP returns the IP other machines most likely reach this one on.
func listenIP() (net.IP, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	bestScore := -1
	var bestIP net.IP
	for _, iface := range interfaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			score, ip := scoreAddr(iface, addr)
			if score > bestScore {
				bestScore = score
				bestIP = ip
			}
		}
	}

	if bestScore == -1 {
		return nil, errors.New("no addresses to listen on")
	}
	return bestIP, nil
}
