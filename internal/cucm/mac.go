package cucm

import "strings"

// DevicePrefix is the device name prefix of SCCP/SIP phones.
const DevicePrefix = "SEP"

// NormalizeMAC strips separators, upper-cases the address and formats it as
// AA:BB:CC:DD:EE:FF. Anything that is not 12 hex digits yields "".
func NormalizeMAC(s string) string {
	hex := compactMAC(s)
	if len(hex) != 12 {
		return ""
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return ""
		}
	}
	return colonize(hex)
}

// DeviceName returns the CUCM device name for a MAC address.
func DeviceName(mac string) string {
	return DevicePrefix + compactMAC(mac)
}

// MACFromDeviceName extracts the MAC from a SEP device name. Names without
// the prefix yield "".
func MACFromDeviceName(name string) string {
	if !strings.HasPrefix(strings.ToUpper(name), DevicePrefix) {
		return ""
	}
	mac := strings.ToUpper(name[len(DevicePrefix):])
	if len(mac) == 12 {
		return colonize(mac)
	}
	return mac
}

func compactMAC(s string) string {
	r := strings.NewReplacer(":", "", "-", "", ".", "", " ", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(s)))
}

func colonize(hex string) string {
	parts := make([]string, 0, 6)
	for i := 0; i < len(hex); i += 2 {
		parts = append(parts, hex[i:i+2])
	}
	return strings.Join(parts, ":")
}
