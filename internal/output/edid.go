package output

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// EDID is the part of a monitor's EDID block that identifies the panel.
type EDID struct {
	Manufacturer string `yaml:"manufacturer" json:"manufacturer" cbor:"manufacturer"`
	Product      uint16 `yaml:"product" json:"product" cbor:"product"`
	Serial       uint32 `yaml:"serial" json:"serial" cbor:"serial"`
}

func (e *EDID) String() string {
	if e == nil {
		return "-"
	}
	return fmt.Sprintf("%s-%04x-%08x", e.Manufacturer, e.Product, e.Serial)
}

// Equal compares two optional identifiers. Two missing identifiers are equal.
func (e *EDID) Equal(o *EDID) bool {
	if e == nil || o == nil {
		return e == nil && o == nil
	}
	return *e == *o
}

var edidHeader = []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}

const (
	edidBlockSize       = 128
	edidDescriptorStart = 54
	edidDescriptorSize  = 18
	edidTagMonitorName  = 0xfc
)

// ParseEDID extracts the identifier from a raw EDID base block.
func ParseEDID(raw []byte) (*EDID, error) {
	if len(raw) < edidBlockSize {
		return nil, fmt.Errorf("edid too short: %d bytes", len(raw))
	}
	if !bytes.Equal(raw[:8], edidHeader) {
		return nil, fmt.Errorf("edid header mismatch")
	}

	// Three 5-bit letters, big endian, 'A' == 1.
	m := binary.BigEndian.Uint16(raw[8:10])
	letters := []byte{
		byte((m>>10)&0x1f) + 'A' - 1,
		byte((m>>5)&0x1f) + 'A' - 1,
		byte(m&0x1f) + 'A' - 1,
	}
	for _, c := range letters {
		if c < 'A' || c > 'Z' {
			return nil, fmt.Errorf("invalid manufacturer id %#04x", m)
		}
	}

	return &EDID{
		Manufacturer: string(letters),
		Product:      binary.LittleEndian.Uint16(raw[10:12]),
		Serial:       binary.LittleEndian.Uint32(raw[12:16]),
	}, nil
}

// MonitorName returns the display product name descriptor, if present.
func MonitorName(raw []byte) string {
	if len(raw) < edidBlockSize {
		return ""
	}
	for i := 0; i < 4; i++ {
		d := raw[edidDescriptorStart+i*edidDescriptorSize : edidDescriptorStart+(i+1)*edidDescriptorSize]
		if d[0] != 0 || d[1] != 0 || d[3] != edidTagMonitorName {
			continue
		}
		name := string(d[5:])
		if idx := strings.IndexByte(name, '\n'); idx >= 0 {
			name = name[:idx]
		}
		return strings.TrimSpace(name)
	}
	return ""
}

// fingerprintKey separates output fingerprints from any other use of BLAKE3
// keyed hashing.
var fingerprintKey = func() [32]byte {
	var key [32]byte
	copy(key[:], "tilewm.output.edid.fingerprint.1")
	return key
}()

// Fingerprint returns a short, stable hex id for a raw EDID block.
func Fingerprint(raw []byte) string {
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("output: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(raw)
	sum := hasher.Sum(nil)
	return hex.EncodeToString(sum[:8])
}
