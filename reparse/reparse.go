//
//  Copyright 2023 The compat authors
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//  	http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

// Package reparse parses NTFS reparse point buffers. The common header is
// a 4 byte tag, a 2 byte payload length and 2 reserved bytes; symbolic
// link and mount point payloads carry a substitute name and a print name,
// any other tag keeps its payload opaque. Parsing is independent of the
// host operating system.
package reparse

import (
	"encoding/binary"
	"errors"
	"unicode/utf16"
)

// Reparse tags of the payload formats known to this package.
const (
	TagMountPoint = 0xA0000003
	TagSymlink    = 0xA000000C
)

// SymlinkFlagRelative marks a symbolic link target that is relative to the
// folder holding the link.
const SymlinkFlagRelative = 0x1

const (
	headerSize    = 8
	symlinkMeta   = 12
	mountMeta     = 8
	flagsOffset   = 8
	symlinkBuffer = symlinkMeta
)

var (
	// ErrTruncated is returned when the buffer is shorter than its header
	// or declared payload length.
	ErrTruncated = errors.New("reparse: truncated buffer")

	// ErrBadNameOffset is returned when a name offset or length points
	// outside the payload.
	ErrBadNameOffset = errors.New("reparse: name outside payload")
)

// Data is one parsed reparse point.
type Data struct {
	// Tag identifies the payload format.
	Tag uint32

	// SubstituteName is the target path used by the file system.
	SubstituteName string

	// PrintName is the target path meant for display.
	PrintName string

	// Relative is true for a symbolic link target relative to the folder
	// holding the link.
	Relative bool

	// Payload holds the raw payload of tags with no known format.
	Payload []byte
}

// IsLink reports whether the data describes a symbolic link or a mount
// point.
func (d *Data) IsLink() bool {
	return d.Tag == TagSymlink || d.Tag == TagMountPoint
}

// Target returns the link target, preferring the print name.
func (d *Data) Target() string {
	if d.PrintName != "" {
		return d.PrintName
	}

	return d.SubstituteName
}

// Parse decodes one reparse point buffer.
func Parse(buf []byte) (*Data, error) {
	if len(buf) < headerSize {
		return nil, ErrTruncated
	}

	tag := binary.LittleEndian.Uint32(buf[0:4])
	length := int(binary.LittleEndian.Uint16(buf[4:6]))

	if headerSize+length > len(buf) {
		return nil, ErrTruncated
	}

	payload := buf[headerSize : headerSize+length]
	data := &Data{Tag: tag}

	switch tag {
	case TagSymlink:
		return data, parseSymlink(data, payload)
	case TagMountPoint:
		return data, parseMountPoint(data, payload)
	default:
		data.Payload = append([]byte(nil), payload...)

		return data, nil
	}
}

// parseSymlink decodes the symbolic link payload: four name offsets, a 4
// byte flags field and the name buffer.
func parseSymlink(data *Data, payload []byte) error {
	if len(payload) < symlinkMeta {
		return ErrTruncated
	}

	flags := binary.LittleEndian.Uint32(payload[flagsOffset : flagsOffset+4])
	data.Relative = flags&SymlinkFlagRelative != 0

	return parseNames(data, payload, symlinkBuffer)
}

// parseMountPoint decodes the mount point payload: four name offsets and
// the name buffer.
func parseMountPoint(data *Data, payload []byte) error {
	if len(payload) < mountMeta {
		return ErrTruncated
	}

	return parseNames(data, payload, mountMeta)
}

func parseNames(data *Data, payload []byte, bufferStart int) error {
	substOffset := int(binary.LittleEndian.Uint16(payload[0:2]))
	substLength := int(binary.LittleEndian.Uint16(payload[2:4]))
	printOffset := int(binary.LittleEndian.Uint16(payload[4:6]))
	printLength := int(binary.LittleEndian.Uint16(payload[6:8]))

	buffer := payload[bufferStart:]

	subst, err := decodeName(buffer, substOffset, substLength)
	if err != nil {
		return err
	}

	print, err := decodeName(buffer, printOffset, printLength)
	if err != nil {
		return err
	}

	data.SubstituteName = subst
	data.PrintName = print

	return nil
}

// decodeName extracts one UTF-16 little endian string from the name
// buffer. Offset and length are in bytes.
func decodeName(buffer []byte, offset, length int) (string, error) {
	if length == 0 {
		return "", nil
	}

	if length%2 != 0 || offset+length > len(buffer) {
		return "", ErrBadNameOffset
	}

	raw := buffer[offset : offset+length]

	codes := make([]uint16, length/2)
	for i := range codes {
		codes[i] = binary.LittleEndian.Uint16(raw[2*i : 2*i+2])
	}

	return string(utf16.Decode(codes)), nil
}
