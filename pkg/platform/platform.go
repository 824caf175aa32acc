// Package platform maps release asset filenames to the target platforms
// a package-manager client can install them on.
package platform

import (
	"fmt"
	"strings"
)

// OS is a target operating system identifier.
type OS string

const (
	OSWindows OS = "windows"
	OSLinux   OS = "linux"
	OSDarwin  OS = "darwin"
)

// Arch is a target CPU architecture identifier.
type Arch string

const (
	ArchX8664   Arch = "x86_64"
	ArchI686    Arch = "i686"
	ArchAarch64 Arch = "aarch64"
	ArchARMv7   Arch = "armv7"
)

// Platform is an (operating system, architecture) pair an asset targets.
type Platform struct {
	OS   OS
	Arch Arch
}

// String returns the canonical manifest identifier, e.g. "linux-x86_64".
func (p Platform) String() string {
	return string(p.OS) + "-" + string(p.Arch)
}

// KnownOS reports whether s is a recognized operating system identifier.
func KnownOS(s string) bool {
	switch OS(s) {
	case OSWindows, OSLinux, OSDarwin:
		return true
	}
	return false
}

// KnownArch reports whether s is a recognized architecture identifier.
func KnownArch(s string) bool {
	switch Arch(s) {
	case ArchX8664, ArchI686, ArchAarch64, ArchARMv7:
		return true
	}
	return false
}

// Parse converts a manifest platform identifier back into a Platform.
func Parse(id string) (Platform, error) {
	osPart, archPart, ok := strings.Cut(id, "-")
	if !ok {
		return Platform{}, fmt.Errorf("invalid platform identifier %q (expected os-arch)", id)
	}
	if !KnownOS(osPart) {
		return Platform{}, fmt.Errorf("unknown operating system %q in platform %q", osPart, id)
	}
	if !KnownArch(archPart) {
		return Platform{}, fmt.Errorf("unknown architecture %q in platform %q", archPart, id)
	}
	return Platform{OS: OS(osPart), Arch: Arch(archPart)}, nil
}

// DefaultArch returns the most common architecture assumed for an OS when an
// asset names the OS but no recognizable architecture. The assumption is a
// documented policy default and can be overridden per run.
func DefaultArch(os OS) Arch {
	return ArchX8664
}
