package validate

import (
	"strconv"

	"github.com/vk/ampbuild/internal/kconfig"
)

// Keys of the multi-core dispatch feature the bootstrap image must enable.
const (
	KeyUseMSDF    = "CONFIG_USE_MSDF"
	KeyMSDFCoreID = "CONFIG_MSDF_CORE_ID"
)

// CheckBootstrapGate requires the bootstrap configuration to enable
// multi-core dispatch on exactly the core the final image is built for.
func CheckBootstrapGate(s *kconfig.Snapshot, core int) error {
	if v, _ := s.Get(KeyUseMSDF); v != "y" {
		return &GateError{Path: s.Path, Msg: KeyUseMSDF + " is not enabled"}
	}
	raw, ok := s.Get(KeyMSDFCoreID)
	if !ok {
		return &GateError{Path: s.Path, Msg: KeyMSDFCoreID + " is not set"}
	}
	id, err := strconv.Atoi(kconfig.Unquote(raw))
	if err != nil {
		return &GateError{Path: s.Path, Msg: KeyMSDFCoreID + "=" + raw + " is not a core id"}
	}
	if id != core {
		return &GateError{Path: s.Path, Msg: KeyMSDFCoreID + " is set to " + raw + ", not matching core id " + strconv.Itoa(core)}
	}
	return nil
}
