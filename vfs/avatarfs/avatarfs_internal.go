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
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/chevah/compat"
	"github.com/chevah/compat/privilege"
)

// absLinkTarget resolves a possibly relative symbolic link target against
// the folder holding the link.
func absLinkTarget(linkPath, target string) string {
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}

	return filepath.Join(filepath.Dir(linkPath), target)
}

// asAvatar runs fn under the avatar's privileges. When impersonation is off
// fn runs under the process identity. A restoration failure on release is
// fatal and overrides fn's own result.
func (vfs *AvatarFS) asAvatar(fn func() error) (err error) {
	var ctx *privilege.Context

	if vfs.avatar.UseImpersonation() {
		identity, idErr := vfs.avatar.ResolvedIdentity(vfs.idm)
		if idErr != nil {
			return idErr
		}

		ctx, err = vfs.privMgr.Acquire(identity)
		if err != nil {
			return err
		}
	}

	defer func() {
		if ctx == nil {
			return
		}

		if rerr := ctx.Release(); rerr != nil {
			err = rerr
		}
	}()

	return fn()
}

// translate wraps raw OS errors in a path error envelope. Layer errors and
// already enveloped OS errors pass through unchanged.
func (vfs *AvatarFS) translate(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var (
		compatErr *compat.CompatError
		pathErr   *fs.PathError
		linkErr   *os.LinkError
	)

	if errors.As(err, &compatErr) || errors.As(err, &pathErr) || errors.As(err, &linkErr) {
		return err
	}

	return &fs.PathError{Op: op, Path: path, Err: err}
}

// segmentsName returns the display name of a segment sequence, the path
// separator for the logical root.
func segmentsName(segments []string) string {
	if len(segments) == 0 {
		return string(compat.PathSeparator())
	}

	return segments[len(segments)-1]
}

// virtualModTime is the synthetic modification time reported for purely
// virtual folders: the start of the current year.
func virtualModTime() time.Time {
	return time.Date(time.Now().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

// virtualAttributes builds the placeholder snapshot for a folder that only
// exists in the virtual folder table.
func (vfs *AvatarFS) virtualAttributes(segments []string) FileAttributes {
	realPath, err := vfs.resolver.RealPath(segments, true)
	if err != nil {
		realPath = ""
	}

	return FileAttributes{
		Name:      segmentsName(segments),
		Path:      realPath,
		IsFolder:  true,
		ModTime:   virtualModTime(),
		Mode:      compat.VirtualFolderPerm | fs.ModeDir,
		HardLinks: 1,
		UID:       -1,
		GID:       -1,
	}
}

// newFileAttributes builds a snapshot from a stat result, filling the
// platform dependent fields and resolving owner and group names best
// effort.
func (vfs *AvatarFS) newFileAttributes(name, realPath string, info fs.FileInfo) FileAttributes {
	attrs := FileAttributes{
		Name:      name,
		Path:      realPath,
		Size:      info.Size(),
		IsFolder:  info.IsDir(),
		IsLink:    info.Mode()&fs.ModeSymlink != 0,
		ModTime:   info.ModTime(),
		Mode:      info.Mode(),
		HardLinks: 1,
		UID:       -1,
		GID:       -1,
	}

	attrs.IsFile = !attrs.IsFolder && !attrs.IsLink

	fillSysAttributes(&attrs, info)

	if attrs.UID >= 0 {
		if u, err := vfs.idm.LookupUserId(attrs.UID); err == nil {
			attrs.Owner = u.Name()
		}
	}

	if attrs.GID >= 0 {
		if g, err := vfs.idm.LookupGroupId(attrs.GID); err == nil {
			attrs.Group = g.Name()
		}
	}

	return attrs
}
