package model

import "testing"

func TestDownloadFormattedFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 bytes"},
		{2048, "2.00 KB"},
		{1572864, "1.50 MB"},
		{1073741824, "1.00 GB"},
	}
	for _, tt := range tests {
		d := Download{FileSize: tt.size}
		if got := d.FormattedFileSize(); got != tt.want {
			t.Errorf("FormattedFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
