package youtube

import "time"

// maxComponent caps each component so the total never overflows a Duration.
const maxComponent = 99999

// ParseDuration converts a compact "PT#H#M#S" duration into a time.Duration.
// Digits accumulate until an H, M or S terminator assigns them; any other
// character is skipped. Missing components count as zero and oversized ones
// saturate at maxComponent.
func ParseDuration(s string) time.Duration {
	var hours, minutes, seconds, buf int
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			buf = min(buf*10+int(r-'0'), maxComponent)
		case r == 'H':
			hours, buf = buf, 0
		case r == 'M':
			minutes, buf = buf, 0
		case r == 'S':
			seconds, buf = buf, 0
		}
	}
	return time.Duration(hours*3600+minutes*60+seconds) * time.Second
}
