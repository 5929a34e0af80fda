package api

import (
	"github.com/Shoaibashk/serialmonitor/internal/channel"
)

// buildPortConfig resolves a (possibly nil/sparse) client-supplied config
// against the manager's defaults, the way every connect entry point — REST
// and WebSocket alike — needs to.
func buildPortConfig(mgr *channel.Manager, in *channel.PortConfigInput) (channel.PortConfig, error) {
	defaults := mgr.DefaultConfig()
	if in == nil {
		in = &channel.PortConfigInput{}
	}
	return in.Build(defaults)
}

// portConfigInputFrom turns a fully-populated PortConfig (as stored on a
// Profile) back into the sparse wire shape, so a profile-based connect can
// go through the same builder as an inline one.
func portConfigInputFrom(cfg channel.PortConfig) *channel.PortConfigInput {
	baud := cfg.BaudRate
	dataBits := cfg.DataBits
	stopBits := stopBitsFloat(cfg.StopBits)
	parity := cfg.Parity.String()
	flowControl := cfg.FlowControl.String()
	return &channel.PortConfigInput{
		Device:      cfg.Device,
		BaudRate:    &baud,
		DataBits:    &dataBits,
		StopBits:    &stopBits,
		Parity:      &parity,
		FlowControl: &flowControl,
	}
}

func stopBitsFloat(s channel.StopBits) float64 {
	switch s {
	case channel.StopBits1Point5:
		return 1.5
	case channel.StopBits2:
		return 2
	default:
		return 1
	}
}
