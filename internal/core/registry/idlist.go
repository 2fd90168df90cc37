package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/penwyp/go-cfs-perfmon/internal/core/constants"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/spf13/afero"
)

const idListFields = 5 // name,value,color,freq,notes

// ParseIDValue parses an ID written as 0x-prefixed hex or decimal.
func ParseIDValue(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid ID value %q: %w", s, err)
	}
	if uint32(v) > constants.IDMask {
		return 0, fmt.Errorf("ID value 0x%x exceeds 31 bits", v)
	}
	return uint32(v), nil
}

// ParseColor accepts #RRGGBB, 0xRRGGBB or a decimal RGB value.
func ParseColor(s string) (model.RGB, error) {
	s = strings.TrimSpace(s)
	var (
		v   uint64
		err error
	)
	switch {
	case strings.HasPrefix(s, "#"):
		v, err = strconv.ParseUint(s[1:], 16, 32)
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		v, err = strconv.ParseUint(s[2:], 16, 32)
	default:
		v, err = strconv.ParseUint(s, 10, 32)
	}
	if err != nil {
		return model.RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if v > 0xffffff {
		return model.RGB{}, fmt.Errorf("color %q out of range", s)
	}
	return model.RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// LoadIDList reads an ID list in the name,value,color,freq,notes layout.
// A positive frequency becomes the ID's maximum expected duration. Lines
// starting with '#' are skipped; the notes column may contain commas.
func LoadIDList(r io.Reader) ([]Definition, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var defs []Definition
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ID list: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if len(fields) < idListFields {
			return nil, fmt.Errorf("ID list line %d: expected %d fields, found %d", line, idListFields, len(fields))
		}

		id, err := ParseIDValue(fields[1])
		if err != nil {
			return nil, fmt.Errorf("ID list line %d: %w", line, err)
		}
		color, err := ParseColor(fields[2])
		if err != nil {
			return nil, fmt.Errorf("ID list line %d: %w", line, err)
		}
		freq, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("ID list line %d: invalid frequency %q", line, fields[3])
		}

		def := Definition{
			ID:    id,
			Name:  strings.TrimSpace(fields[0]),
			Color: &color,
			Notes: strings.Join(fields[idListFields-1:], ","),
		}
		if freq > 0 {
			maxValue := 1 / freq
			def.MaxValue = &maxValue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadIDListFile reads an ID list from fs.
func LoadIDListFile(fs afero.Fs, path string) ([]Definition, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ID list: %w", err)
	}
	defer file.Close()
	return LoadIDList(file)
}

// WriteIDList writes ids in the layout LoadIDList reads.
func WriteIDList(w io.Writer, ids []model.PerformanceID) error {
	writer := csv.NewWriter(w)
	for _, pid := range ids {
		freq := 0.0
		if pid.MaxValue != nil && *pid.MaxValue > 0 {
			freq = 1 / *pid.MaxValue
		}
		name := pid.Name
		if !pid.IsNamed() {
			name = ""
		}
		record := []string{
			name,
			model.FormatID(pid.ID),
			fmt.Sprintf("0x%06x", uint32(pid.Color.R)<<16|uint32(pid.Color.G)<<8|uint32(pid.Color.B)),
			strconv.FormatFloat(freq, 'f', 6, 64),
			pid.Notes,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
