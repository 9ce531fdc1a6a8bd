package spin

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultBitsPerSpin = 100
	// MaxSpinsPerRequest は1件の要求で積めるスピン数の上限
	MaxSpinsPerRequest = 1000
)

var ErrInvalidRequest = errors.New("invalid spin request")

// Request は1件の寄付から生成されたスピン要求
type Request struct {
	Donor   string `json:"donor"`
	Bits    int    `json:"bits"`
	Spins   int    `json:"spins"`
	Message string `json:"message"`
}

// Count returns floor(bits/perSpin). Negative bits yield 0.
func Count(bits, perSpin int) int {
	if perSpin <= 0 {
		perSpin = DefaultBitsPerSpin
	}
	if bits <= 0 {
		return 0
	}
	return bits / perSpin
}

// NewRequest builds a Request with the spin count derived from bits.
func NewRequest(donor string, bits, perSpin int, message string) Request {
	return Request{
		Donor:   donor,
		Bits:    bits,
		Spins:   Count(bits, perSpin),
		Message: message,
	}
}

// Validate rejects requests that cannot have come from a well-formed donation.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Donor) == "" {
		return fmt.Errorf("%w: donor is empty", ErrInvalidRequest)
	}
	if r.Bits < 0 {
		return fmt.Errorf("%w: bits must be >= 0, got %d", ErrInvalidRequest, r.Bits)
	}
	if r.Spins < 0 {
		return fmt.Errorf("%w: spins must be >= 0, got %d", ErrInvalidRequest, r.Spins)
	}
	if r.Spins > MaxSpinsPerRequest {
		return fmt.Errorf("%w: spins must be <= %d, got %d", ErrInvalidRequest, MaxSpinsPerRequest, r.Spins)
	}
	// a spin costs at least one bit
	if r.Spins > r.Bits {
		return fmt.Errorf("%w: %d spins for %d bits", ErrInvalidRequest, r.Spins, r.Bits)
	}
	return nil
}

// Banner is the "current donor" line shown while the request is being spun.
func (r Request) Banner() string {
	suffix := "spin"
	if r.Spins > 1 {
		suffix = "spins"
	}
	return fmt.Sprintf("%s donated %d bits! (%d %s)", r.Donor, r.Bits, r.Spins, suffix)
}
