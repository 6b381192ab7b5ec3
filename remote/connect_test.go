package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCandidates(t *testing.T) {
	tests := []struct {
		name  string
		proto Protocol
		want  []Protocol
	}{
		{
			name:  "auto tries most secure first",
			proto: ProtocolAuto,
			want:  []Protocol{ProtocolSFTP, ProtocolFTPS, ProtocolFTP},
		},
		{
			name:  "empty protocol negotiates",
			proto: Protocol(""),
			want:  []Protocol{ProtocolSFTP, ProtocolFTPS, ProtocolFTP},
		},
		{
			name:  "explicit sftp only",
			proto: ProtocolSFTP,
			want:  []Protocol{ProtocolSFTP},
		},
		{
			name:  "explicit ftps only",
			proto: ProtocolFTPS,
			want:  []Protocol{ProtocolFTPS},
		},
		{
			name:  "explicit ftp only",
			proto: ProtocolFTP,
			want:  []Protocol{ProtocolFTP},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, candidates(tt.proto))
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{Host: "example.com"}

	assert.Equal(t, defaultTimeout, cfg.timeout())
	assert.Equal(t, defaultFTPPort, cfg.port(defaultFTPPort))
	assert.Equal(t, defaultSSHPort, cfg.port(defaultSSHPort))

	cfg.Timeout = 5 * time.Second
	cfg.Port = 2222
	assert.Equal(t, 5*time.Second, cfg.timeout())
	assert.Equal(t, 2222, cfg.port(defaultSSHPort))
}
