package peer

import (
	"encoding/json"
	"net"
	"strings"

	pion "github.com/pion/webrtc/v4"

	"github.com/alamayub/omagle-clone/internal/config"
)

// cgnatBlock is used by Cloudflare WARP, Tailscale and carrier-grade NATs.
var cgnatBlock = func() *net.IPNet {
	_, block, _ := net.ParseCIDR("100.64.0.0/10")
	return block
}()

// ShouldForceRelay reports whether this host looks like it sits behind a VPN
// or CGNAT, where direct connectivity rarely works.
func ShouldForceRelay() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if isTunnelInterface(iface.Name) {
			return true
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if isCGNAT(ip) {
				return true
			}
		}
	}
	return false
}

func isTunnelInterface(name string) bool {
	name = strings.ToLower(name)
	for _, marker := range []string{"tun", "tap", "wg", "ppp", "warp"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

func isCGNAT(ip net.IP) bool {
	return ip != nil && cgnatBlock.Contains(ip)
}

// iceConfiguration builds the ICE setup for cfg. Relay-only transport needs a
// TURN server; without one the policy stays open.
func iceConfiguration(cfg *config.Config, forceRelay bool) pion.Configuration {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && forceRelay {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	}
}

// NewPeerConnection creates the WebRTC peer for one call. A nil api uses the
// pion defaults.
func NewPeerConnection(api *pion.API, cfg *config.Config) (*pion.PeerConnection, error) {
	conf := iceConfiguration(cfg, cfg.ForceRelay || ShouldForceRelay())

	var (
		pc  *pion.PeerConnection
		err error
	)
	if api != nil {
		pc, err = api.NewPeerConnection(conf)
	} else {
		pc, err = pion.NewPeerConnection(conf)
	}
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

func encodeDescription(desc *pion.SessionDescription) (json.RawMessage, error) {
	b, err := json.Marshal(desc)
	if err != nil {
		return nil, NewError("encode session description", err)
	}
	return b, nil
}

func decodeDescription(payload json.RawMessage, want pion.SDPType) (pion.SessionDescription, error) {
	var desc pion.SessionDescription
	if err := json.Unmarshal(payload, &desc); err != nil {
		return desc, NewError("parse session description", err)
	}
	if desc.Type != want || desc.SDP == "" {
		return desc, WrapError("parse session description", ErrUnexpectedSignal, desc.Type.String())
	}
	return desc, nil
}

func decodeCandidate(payload json.RawMessage) (pion.ICECandidateInit, error) {
	var ice pion.ICECandidateInit
	if err := json.Unmarshal(payload, &ice); err != nil {
		return ice, NewError("parse ICE candidate", err)
	}
	if ice.Candidate == "" {
		return ice, WrapError("parse ICE candidate", ErrUnexpectedSignal, "empty candidate")
	}
	return ice, nil
}
