package discovery

import "testing"

func TestIsRecognizedDeviceHostname(t *testing.T) {
	tests := []struct {
		hostname string
		want     bool
	}{
		// Factory naming, 6-character token
		{"zgx-ab12cd", true},
		{"zgx-AB12CD", true},
		{"zgx-000000", true},
		// Factory naming, 4-character token
		{"zgx-wxyz", true},
		{"zgx-1a2b", true},
		// Third-party default naming
		{"spark-ab12", true},
		{"spark-ZZZZ", true},

		{"myhost", false},
		{"zgx-toolong123", false},
		{"sparkxy34", false}, // missing dash
		{"zgx-ab12cd7", false},
		{"zgx-abc", false},
		{"zgx-", false},
		{"spark-ab123", false},
		{"spark-ab1", false},
		{"ZGX-ab12cd", false}, // prefix is matched as received
		{"zgx-ab12cd.local", false},
		{"azgx-ab12cd", false},
		{"zgx-ab!2cd", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			if got := IsRecognizedDeviceHostname(tt.hostname); got != tt.want {
				t.Errorf("IsRecognizedDeviceHostname(%q) = %v, want %v", tt.hostname, got, tt.want)
			}
		})
	}
}
