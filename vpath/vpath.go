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

// Package vpath translates logical path segments into real file system
// paths for one avatar: it applies the configured root, the home folder
// lock-in boundary and the virtual folder table.
package vpath

import (
	"os"
	"strings"

	"github.com/chevah/compat"
)

// Resolver resolves logical segments for one avatar. It is immutable and
// safe for concurrent use.
type Resolver struct {
	avatar        *compat.Avatar
	basePath      string
	lockPath      string
	homeSegments  []string
	virtual       []compat.VirtualFolder
	separator     uint8
	caseSensitive bool
}

// VirtualMatch describes how a segment sequence relates to the virtual
// folder table.
type VirtualMatch struct {
	// Exact is true when the segments name a virtual mount point.
	Exact bool

	// Inside is true when the segments descend below a virtual mount point.
	Inside bool

	// Ancestor is true when the segments name an ancestor of at least one
	// virtual mount point: a synthetic read-only container.
	Ancestor bool

	// Folder is the matched mapping for Exact and Inside matches.
	Folder *compat.VirtualFolder

	// Remainder holds the segments below the mount point for Inside matches.
	Remainder []string
}

// IsVirtual is true for any relation to the virtual table.
func (m VirtualMatch) IsVirtual() bool {
	return m.Exact || m.Inside || m.Ancestor
}

// New returns a Resolver for avatar. The virtual folder table is validated
// against the real file system: a mapping whose logical path or any of its
// ancestors already exists as a real entry fails with the overlap error
// before any other operation runs.
func New(avatar *compat.Avatar) (*Resolver, error) {
	r := &Resolver{
		avatar:        avatar,
		separator:     compat.PathSeparator(),
		caseSensitive: compat.CaseSensitive(),
		virtual:       avatar.VirtualFolders(),
	}

	r.basePath = avatar.RootFolderPath()
	if avatar.LockInHomeFolder() {
		r.basePath = avatar.HomeFolderPath()
	}

	if r.basePath == "" {
		r.basePath = defaultBasePath(r.separator)
	}

	r.basePath = r.cleanReal(r.basePath)

	if avatar.LockInHomeFolder() {
		r.lockPath = r.basePath
	}

	r.homeSegments = r.homeFolderSegments()

	if err := r.validateVirtualFolders(); err != nil {
		return nil, err
	}

	return r, nil
}

func defaultBasePath(separator uint8) string {
	if separator == '\\' {
		return `C:\`
	}

	return "/"
}

// homeFolderSegments returns the avatar's home folder as logical segments
// relative to the base path. A home folder outside the base resolves to the
// logical root.
func (r *Resolver) homeFolderSegments() []string {
	home := r.avatar.HomeFolderPath()
	if home == "" {
		return nil
	}

	home = r.cleanReal(home)

	rel, ok := r.stripBase(home, r.basePath)
	if !ok {
		return nil
	}

	return r.splitSegments(rel, nil)
}

// validateVirtualFolders fails fast when a virtual mapping or any of its
// logical ancestors shadows an existing real entry.
func (r *Resolver) validateVirtualFolders() error {
	for _, vf := range r.virtual {
		for i := 1; i <= len(vf.Segments); i++ {
			real := r.joinReal(r.basePath, vf.Segments[:i])

			if _, err := os.Lstat(real); err == nil {
				return compat.NewCompatError(compat.EventOverlappingVirtualPath,
					"Virtual path '"+strings.Join(vf.Segments[:i], "/")+
						"' overlaps existing path '"+real+"'.")
			}
		}
	}

	return nil
}

// HomeSegments returns the logical segments of the avatar's home folder.
func (r *Resolver) HomeSegments() []string {
	return append([]string(nil), r.homeSegments...)
}

// BasePath returns the real path all non-virtual segments resolve under.
func (r *Resolver) BasePath() string {
	return r.basePath
}

// Segments splits a path string into normalized logical segments.
// An empty path or "." resolves to the avatar's home segments; relative
// paths are resolved against the home segments; "." and ".." components are
// normalized away, clamped at the logical root.
func (r *Resolver) Segments(path string) []string {
	if path == "" || path == "." {
		return r.HomeSegments()
	}

	var segments []string
	if !isAbs(path, r.separator) {
		segments = r.HomeSegments()
	}

	return r.splitSegments(path, segments)
}

func (r *Resolver) splitSegments(path string, base []string) []string {
	segments := base

	it := NewSegmentIterator(path, r.separator)
	for it.Next() {
		switch part := it.Part(); part {
		case ".":
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, part)
		}
	}

	return segments
}

// Match reports how segments relate to the virtual folder table. Mappings
// are checked in table order and the first exact or inside match wins.
func (r *Resolver) Match(segments []string) VirtualMatch {
	match := VirtualMatch{}

	for i := range r.virtual {
		vf := &r.virtual[i]

		if len(segments) >= len(vf.Segments) {
			if !r.equalSegments(segments[:len(vf.Segments)], vf.Segments) {
				continue
			}

			if len(segments) == len(vf.Segments) {
				match.Exact = true
			} else {
				match.Inside = true
				match.Remainder = segments[len(vf.Segments):]
			}

			match.Folder = vf

			return match
		}

		if r.equalSegments(segments, vf.Segments[:len(segments)]) {
			match.Ancestor = true
		}
	}

	return match
}

// VirtualChildren returns the names of the virtual entries directly below
// segments, in table order, without duplicates. These are listed ahead of
// same-named real children.
func (r *Resolver) VirtualChildren(segments []string) []string {
	var children []string

	for _, vf := range r.virtual {
		if len(vf.Segments) <= len(segments) {
			continue
		}

		if !r.equalSegments(segments, vf.Segments[:len(segments)]) {
			continue
		}

		child := vf.Segments[len(segments)]

		duplicate := false

		for _, known := range children {
			if r.equalSegment(known, child) {
				duplicate = true

				break
			}
		}

		if !duplicate {
			children = append(children, child)
		}
	}

	return children
}

// RealPath translates logical segments into a real file system path.
//
// Priority order: segments matching or descending from a virtual mapping
// substitute the mapping's real prefix; anything else joins onto the
// avatar's base path. When includeVirtual is false, a virtual mount point or
// an ancestor of one fails with the read-only virtual path error: those
// segments cannot be mutated.
func (r *Resolver) RealPath(segments []string, includeVirtual bool) (string, error) {
	match := r.Match(segments)

	switch {
	case match.Exact, match.Inside:
		if match.Exact && !includeVirtual {
			return "", virtualReadOnlyError(segments)
		}

		if match.Folder.RealPath == "" || !isAbs(match.Folder.RealPath, r.separator) {
			return "", compat.NewCompatError(compat.EventBrokenVirtualPath,
				"Virtual path '"+strings.Join(match.Folder.Segments, "/")+"' is broken.")
		}

		real := r.joinReal(r.cleanReal(match.Folder.RealPath), match.Remainder)

		return r.cleanReal(real), nil

	case match.Ancestor:
		if !includeVirtual {
			return "", virtualReadOnlyError(segments)
		}
	}

	real := r.cleanReal(r.joinReal(r.basePath, segments))

	// Re-validate confinement after normalization: segments are caller
	// input and may try to escape through parent references.
	if r.lockPath != "" {
		if _, ok := r.stripBase(real, r.lockPath); !ok {
			return "", compat.NewCompatError(compat.EventUserCheckFailed,
				"Path '"+real+"' escapes the locked folder '"+r.lockPath+"'.")
		}
	}

	return real, nil
}

// SegmentsFromRealPath is the inverse of RealPath for real, reachable
// paths: virtual mapping targets translate back to their mount point and
// paths under the base path translate to plain segments.
func (r *Resolver) SegmentsFromRealPath(realPath string) ([]string, error) {
	real := r.cleanReal(realPath)

	for i := range r.virtual {
		vf := &r.virtual[i]

		if !isAbs(vf.RealPath, r.separator) {
			continue
		}

		rel, ok := r.stripBase(real, r.cleanReal(vf.RealPath))
		if !ok {
			continue
		}

		segments := append([]string(nil), vf.Segments...)

		return r.splitSegments(rel, segments), nil
	}

	rel, ok := r.stripBase(real, r.basePath)
	if !ok {
		return nil, compat.NewCompatError(compat.EventUserCheckFailed,
			"Path '"+realPath+"' is outside the avatar's root folder.")
	}

	return r.splitSegments(rel, nil), nil
}

// joinReal joins normalized segments below a real base path.
func (r *Resolver) joinReal(base string, segments []string) string {
	if len(segments) == 0 {
		return base
	}

	sep := string(r.separator)

	joined := strings.TrimSuffix(base, sep) + sep + strings.Join(segments, sep)

	return joined
}

// cleanReal normalizes a real path lexically: separators unified, "." and
// ".." components resolved, trailing separator removed.
func (r *Resolver) cleanReal(path string) string {
	it := NewSegmentIterator(path, r.separator)

	var parts []string

	for it.Next() {
		switch part := it.Part(); part {
		case ".":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, part)
		}
	}

	sep := string(r.separator)
	root := it.VolumeName() + sep

	if len(parts) == 0 {
		return root
	}

	return it.VolumeName() + sep + strings.Join(parts, sep)
}

// stripBase returns path relative to base when path is base or below it.
func (r *Resolver) stripBase(path, base string) (string, bool) {
	if r.equalPath(path, base) {
		return "", true
	}

	prefix := strings.TrimSuffix(base, string(r.separator)) + string(r.separator)

	if len(path) <= len(prefix) {
		return "", false
	}

	if !r.equalPath(path[:len(prefix)], prefix) {
		return "", false
	}

	return path[len(prefix):], true
}

// SameName reports whether two entry names compare equal under the
// platform's case policy.
func (r *Resolver) SameName(a, b string) bool {
	return r.equalSegment(a, b)
}

func (r *Resolver) equalSegments(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !r.equalSegment(a[i], b[i]) {
			return false
		}
	}

	return true
}

// equalSegment tries the exact comparison first and only falls back to
// case folding on case insensitive platforms.
func (r *Resolver) equalSegment(a, b string) bool {
	if a == b {
		return true
	}

	if r.caseSensitive {
		return false
	}

	return strings.EqualFold(a, b)
}

func (r *Resolver) equalPath(a, b string) bool {
	if a == b {
		return true
	}

	if r.caseSensitive {
		return false
	}

	return strings.EqualFold(a, b)
}

func virtualReadOnlyError(segments []string) error {
	return compat.NewCompatError(compat.EventVirtualPathReadOnly,
		"Virtual path '"+strings.Join(segments, "/")+"' can't be modified.")
}
