package dictionary

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// FileFormat represents the supported dictionary file formats
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatCSV                // word,count rows with a header row
	FormatText               // "word [count]" per line
	FormatBinary             // count header + (len, word, freq) records
)

// FormatInfo contains metadata about a dictionary file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	MinSize     int64 // Minimum expected file size in bytes
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatCSV: {
		Format:      FormatCSV,
		Description: "CSV Word Frequency List",
		Extensions:  []string{".csv"},
		MinSize:     1,
	},
	FormatText: {
		Format:      FormatText,
		Description: "Plain Text Dictionary",
		Extensions:  []string{".txt"},
		MinSize:     1,
	},
	FormatBinary: {
		Format:      FormatBinary,
		Description: "Binary Dictionary",
		Extensions:  []string{".bin"},
		MinSize:     4, // At least the entry count header
	},
}

func (f FileFormat) String() string {
	if info, ok := supportedFormats[f]; ok {
		return info.Description
	}
	return "unknown"
}

// ValidateFileFormat checks if a file matches the expected format
func ValidateFileFormat(filename string, expectedFormat FileFormat) error {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", filename, err)
	}

	formatInfo, exists := supportedFormats[expectedFormat]
	if !exists {
		return fmt.Errorf("unknown format: %v", expectedFormat)
	}

	if fileInfo.Size() < formatInfo.MinSize {
		return fmt.Errorf("file %s is too small (%d bytes) for format %s (minimum: %d bytes)",
			filename, fileInfo.Size(), formatInfo.Description, formatInfo.MinSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	validExt := false
	for _, validExtension := range formatInfo.Extensions {
		if ext == validExtension {
			validExt = true
			break
		}
	}
	if !validExt {
		return fmt.Errorf("file %s has invalid extension %s for format %s (expected: %v)",
			filename, ext, formatInfo.Description, formatInfo.Extensions)
	}

	if expectedFormat == FormatBinary {
		return validateBinaryFormat(filename, fileInfo.Size())
	}
	return nil
}

// validateBinaryFormat checks the entry count header against the file size.
func validateBinaryFormat(filename string, size int64) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	var wordCount int32
	if err := binary.Read(file, binary.LittleEndian, &wordCount); err != nil {
		return fmt.Errorf("failed to read header from %s: %w", filename, err)
	}
	if wordCount < 0 {
		return fmt.Errorf("invalid word count in %s: %d (negative)", filename, wordCount)
	}
	// every record takes at least a length, one byte and a frequency
	if minSize := 4 + int64(wordCount)*7; size < minSize {
		return fmt.Errorf("file %s is truncated: %d words need at least %d bytes, have %d",
			filename, wordCount, minSize, size)
	}

	log.Debugf("Binary file %s validated: %d words", filename, wordCount)
	return nil
}

// DetectFileFormat works out the format of a file from its extension and validates it.
func DetectFileFormat(filename string) (FileFormat, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for format, info := range supportedFormats {
		for _, e := range info.Extensions {
			if e != ext {
				continue
			}
			if err := ValidateFileFormat(filename, format); err != nil {
				return FormatUnknown, err
			}
			return format, nil
		}
	}
	return FormatUnknown, fmt.Errorf("unable to detect format for file %s", filename)
}
