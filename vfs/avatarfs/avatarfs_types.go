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

package avatarfs

import (
	"io/fs"
	"time"

	"github.com/rs/zerolog"

	"github.com/chevah/compat"
	"github.com/chevah/compat/privilege"
	"github.com/chevah/compat/vpath"
)

// AvatarFS exposes the file system as seen by one avatar: every operation
// is keyed by logical path segments, resolved through the avatar's virtual
// folder table and executed under the avatar's privileges.
type AvatarFS struct {
	avatar   *compat.Avatar
	resolver *vpath.Resolver
	privMgr  *privilege.Manager
	idm      compat.IdentityResolver
	logger   zerolog.Logger
}

// FileAttributes is an immutable snapshot of one file system entry.
// Two snapshots are equal iff all fields match.
type FileAttributes struct {
	// Name is the last logical segment of the entry.
	Name string

	// Path is the resolved real path the snapshot was taken from.
	Path string

	Size     int64
	IsFile   bool
	IsFolder bool
	IsLink   bool
	ModTime  time.Time
	Mode     fs.FileMode

	// HardLinks is the hard link count, 1 where not tracked.
	HardLinks uint64

	// UID and GID are the numeric owner ids, -1 where not tracked.
	UID int
	GID int

	// Owner and Group are the resolved names, empty when unresolvable.
	Owner string
	Group string

	// NodeID identifies the file system node, 0 where not tracked.
	NodeID uint64
}

// Equal reports whether all fields of both snapshots match.
func (a FileAttributes) Equal(other FileAttributes) bool {
	return a == other
}
