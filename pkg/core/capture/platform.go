// Package capture supervises the platform helper process that streams system
// audio as raw PCM.
package capture

import "runtime"

// Platform is the host operating system family.
type Platform string

const (
	PlatformDarwin  Platform = "darwin"
	PlatformWindows Platform = "windows"
	PlatformLinux   Platform = "linux"
	PlatformUnknown Platform = "unknown"
)

// ParsePlatform maps a GOOS value to a Platform.
func ParsePlatform(goos string) Platform {
	switch goos {
	case "darwin":
		return PlatformDarwin
	case "windows":
		return PlatformWindows
	case "linux":
		return PlatformLinux
	default:
		return PlatformUnknown
	}
}

// SupportsSystemAudio reports whether native system-audio capture exists for p.
// Only macOS ships a capture helper today.
func SupportsSystemAudio(p Platform) bool {
	return p == PlatformDarwin
}

// Probe reports the current platform.
type Probe interface {
	CurrentPlatform() Platform
}

// RuntimeProbe reads runtime.GOOS.
type RuntimeProbe struct{}

func (RuntimeProbe) CurrentPlatform() Platform { return ParsePlatform(runtime.GOOS) }

// StaticProbe always reports the same platform.
type StaticProbe Platform

func (p StaticProbe) CurrentPlatform() Platform { return Platform(p) }
