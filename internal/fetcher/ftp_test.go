package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  bool
	}{
		{"default port", "ftp://ftp.example.com/pub/stats.csv", "ftp.example.com:21", "/pub/stats.csv", false},
		{"explicit port", "ftp://ftp.example.com:2121/stats.csv", "ftp.example.com:2121", "/stats.csv", false},
		{"wrong scheme", "http://example.com/x", "", "", true},
		{"missing path", "ftp://example.com", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := parseFTPURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}
