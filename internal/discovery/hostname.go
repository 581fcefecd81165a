package discovery

import "regexp"

// Recognized device hostname conventions. ZGX workstations ship with a
// factory hostname of "zgx-" followed by a 6- or 4-character token; devices
// renamed by the default third-party imaging flow use "spark-" plus a
// 4-character token. Matching is anchored and exact; anything else is not a
// managed device and is filtered out of discovery results.
var hostnamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^zgx-[0-9A-Za-z]{6}$`),
	regexp.MustCompile(`^zgx-[0-9A-Za-z]{4}$`),
	regexp.MustCompile(`^spark-[0-9A-Za-z]{4}$`),
}

// IsRecognizedDeviceHostname reports whether hostname follows one of the
// known device naming conventions. The hostname is matched as received;
// no case normalization is applied beyond what the patterns encode.
func IsRecognizedDeviceHostname(hostname string) bool {
	for _, pattern := range hostnamePatterns {
		if pattern.MatchString(hostname) {
			return true
		}
	}
	return false
}
