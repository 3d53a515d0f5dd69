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

package vpath

import "strings"

// SegmentIterator iterates over the parts of a path without allocating.
// Both the native separator and '/' are accepted, so Windows paths may be
// written either way.
type SegmentIterator struct {
	path          string
	start         int
	end           int
	volumeNameLen int
	separator     uint8
}

// NewSegmentIterator returns an iterator over the parts of path.
func NewSegmentIterator(path string, separator uint8) *SegmentIterator {
	si := &SegmentIterator{
		path:          path,
		volumeNameLen: volumeNameLen(path, separator),
		separator:     separator,
	}

	si.end = si.volumeNameLen

	return si
}

// Next advances to the following part, returning false when the path is
// exhausted.
func (si *SegmentIterator) Next() bool {
	si.start = si.end

	// Skip separators, including repeated ones.
	for si.start < len(si.path) && si.isSeparator(si.path[si.start]) {
		si.start++
	}

	if si.start >= len(si.path) {
		si.end = si.start

		return false
	}

	pos := si.start
	for pos < len(si.path) && !si.isSeparator(si.path[pos]) {
		pos++
	}

	si.end = pos

	return true
}

// Part returns the current path part.
func (si *SegmentIterator) Part() string {
	return si.path[si.start:si.end]
}

// IsLast returns true when the current part is the final one.
func (si *SegmentIterator) IsLast() bool {
	return si.end == len(si.path)
}

// VolumeName returns the volume prefix of the path, or "".
func (si *SegmentIterator) VolumeName() string {
	return si.path[:si.volumeNameLen]
}

func (si *SegmentIterator) isSeparator(c uint8) bool {
	return c == si.separator || c == '/'
}

// volumeNameLen returns the length of a leading Windows volume name such as
// "C:", or 0.
func volumeNameLen(path string, separator uint8) int {
	if separator != '\\' {
		return 0
	}

	if len(path) >= 2 && path[1] == ':' &&
		('a' <= path[0] && path[0] <= 'z' || 'A' <= path[0] && path[0] <= 'Z') {
		return 2
	}

	return 0
}

// isAbs reports whether path starts at a root for the given separator.
func isAbs(path string, separator uint8) bool {
	vl := volumeNameLen(path, separator)
	rest := path[vl:]

	return rest != "" && (rest[0] == separator || rest[0] == '/')
}

// hasSeparator reports whether path contains any separator byte.
func hasSeparator(path string, separator uint8) bool {
	return strings.IndexByte(path, separator) >= 0 || strings.IndexByte(path, '/') >= 0
}
