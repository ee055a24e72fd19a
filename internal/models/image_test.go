package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImageFileType(t *testing.T) {
	for raw, want := range map[string]ImageFileType{
		"jpg":  ImageFileTypeJPG,
		"JPEG": ImageFileTypeJPEG,
		"Png":  ImageFileTypePNG,
		"TIFF": ImageFileTypeTIFF,
		"bmp":  ImageFileTypeBMP,
		"gif":  ImageFileTypeGIF,
	} {
		got, err := ParseImageFileType(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseImageFileType("webp")
	require.Error(t, err)
	_, err = ParseImageFileType("")
	require.Error(t, err)
}
