package sitearchive

import (
	"encoding/json"
	"fmt"

	"github.com/paulschiretz/pgl-wp-restore/pkg/util"
)

// Format represents the archive format of a site archive. The format tag is
// determined exactly once, by Locate, so the suffix logic is never duplicated
// between locating and extracting.
type Format string

const (
	Zip    Format = "zip"
	Tar    Format = "tar"
	TarGz  Format = "tar.gz"
	Tgz    Format = "tgz"
	TarZst Format = "tar.zst"
	TarXz  Format = "tar.xz"
)

// probeOrder is the fixed order in which Locate tries archive suffixes.
// The first four entries are the classic hosting-panel export formats; the
// zstd and xz variants are probed last so they never shadow an archive a
// previous tool version would have picked.
var probeOrder = []Format{Zip, Tar, TarGz, Tgz, TarZst, TarXz}

var formatToString = map[Format]string{
	Zip:    "zip",
	Tar:    "tar",
	TarGz:  "tar.gz",
	Tgz:    "tgz",
	TarZst: "tar.zst",
	TarXz:  "tar.xz",
}

var stringToFormat map[string]Format

func init() {
	// Inverting the map at runtime ensures formatToString is fully loaded
	stringToFormat = util.InvertMap(formatToString)
}

func (f Format) String() string {
	if str, ok := formatToString[f]; ok {
		return str
	}
	return fmt.Sprintf("unknown_archive_format(%s)", string(f))
}

// Suffix returns the file name suffix for the format, including the leading dot.
func (f Format) Suffix() string {
	return "." + f.String()
}

// ParseFormat parses a string and returns the corresponding Format.
func ParseFormat(s string) (Format, error) {
	if format, ok := stringToFormat[s]; ok {
		return format, nil
	}
	return "", fmt.Errorf("invalid archive format: %q. Must be one of 'zip', 'tar', 'tar.gz', 'tgz', 'tar.zst' or 'tar.xz'", s)
}

// MarshalJSON implements the json.Marshaler interface for Format.
func (f Format) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for Format.
func (f *Format) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("archive format should be a string, got %s", data)
	}
	format, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = format
	return nil
}
