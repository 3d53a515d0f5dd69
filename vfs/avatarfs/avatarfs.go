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

// Package avatarfs is the file system facade of the compatibility layer.
// Operations are keyed by logical segment sequences and follow one
// template: resolve the real path, reject mutations of virtual paths,
// impersonate the avatar, run the syscall, translate the error and restore
// the process identity.
package avatarfs

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/valyala/fastrand"

	"github.com/chevah/compat"
)

// Exists reports whether segments denote an existing entry. Virtual paths
// exist by definition; a broken virtual mapping reports non existence
// instead of failing.
func (vfs *AvatarFS) Exists(segments []string) bool {
	match := vfs.resolver.Match(segments)
	if match.Exact || match.Ancestor {
		return true
	}

	real, err := vfs.resolver.RealPath(segments, true)
	if err != nil {
		return false
	}

	exists := false

	err = vfs.asAvatar(func() error {
		_, statErr := os.Lstat(real)
		exists = statErr == nil

		return nil
	})

	return err == nil && exists
}

// IsFile reports whether segments denote a regular file.
func (vfs *AvatarFS) IsFile(segments []string) bool {
	attrs, err := vfs.GetAttributes(segments)

	return err == nil && attrs.IsFile
}

// IsFolder reports whether segments denote a folder. Virtual folders count.
func (vfs *AvatarFS) IsFolder(segments []string) bool {
	attrs, err := vfs.GetAttributes(segments)

	return err == nil && attrs.IsFolder
}

// IsLink reports whether segments denote a symbolic link.
func (vfs *AvatarFS) IsLink(segments []string) bool {
	attrs, err := vfs.GetAttributes(segments)

	return err == nil && attrs.IsLink
}

// GetAttributes returns the snapshot for segments without following
// symbolic links. A purely virtual folder returns the synthetic snapshot
// instead of failing.
func (vfs *AvatarFS) GetAttributes(segments []string) (FileAttributes, error) {
	match := vfs.resolver.Match(segments)

	if match.Exact || match.Ancestor {
		if match.Exact {
			if attrs, err := vfs.realAttributes(segments); err == nil {
				attrs.Name = segmentsName(segments)

				return attrs, nil
			}
		}

		return vfs.virtualAttributes(segments), nil
	}

	return vfs.realAttributes(segments)
}

func (vfs *AvatarFS) realAttributes(segments []string) (FileAttributes, error) {
	real, err := vfs.resolver.RealPath(segments, true)
	if err != nil {
		return FileAttributes{}, err
	}

	var info fs.FileInfo

	err = vfs.asAvatar(func() error {
		info, err = os.Lstat(real)

		return err
	})
	if err != nil {
		return FileAttributes{}, vfs.translate("lstat", real, err)
	}

	return vfs.newFileAttributes(segmentsName(segments), real, info), nil
}

// GetFolderContent lists the folder at segments. Virtual children are
// listed first, in table order, and shadow same named real entries.
func (vfs *AvatarFS) GetFolderContent(segments []string) ([]FileAttributes, error) {
	virtualNames := vfs.resolver.VirtualChildren(segments)

	content := make([]FileAttributes, 0, len(virtualNames))

	for _, name := range virtualNames {
		child := append(append([]string(nil), segments...), name)

		attrs, err := vfs.GetAttributes(child)
		if err != nil {
			attrs = vfs.virtualAttributes(child)
		}

		content = append(content, attrs)
	}

	real, resolveErr := vfs.resolver.RealPath(segments, true)

	var entries []fs.DirEntry

	readErr := resolveErr
	if readErr == nil {
		readErr = vfs.asAvatar(func() error {
			var err error
			entries, err = os.ReadDir(real)

			return err
		})
	}

	if readErr != nil {
		// A folder that only exists virtually still lists its children.
		if len(virtualNames) != 0 || vfs.resolver.Match(segments).IsVirtual() {
			return content, nil
		}

		return nil, vfs.translate("readdir", real, readErr)
	}

	sep := string(compat.PathSeparator())

	for _, entry := range entries {
		if vfs.isVirtualChild(virtualNames, entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		content = append(content, vfs.newFileAttributes(entry.Name(), real+sep+entry.Name(), info))
	}

	return content, nil
}

func (vfs *AvatarFS) isVirtualChild(virtualNames []string, name string) bool {
	for _, virtual := range virtualNames {
		if vfs.resolver.SameName(virtual, name) {
			return true
		}
	}

	return false
}

// CreateFolder creates the folder at segments.
func (vfs *AvatarFS) CreateFolder(segments []string) error {
	real, err := vfs.resolver.RealPath(segments, false)
	if err != nil {
		return err
	}

	err = vfs.asAvatar(func() error {
		return os.Mkdir(real, compat.DefaultFolderPerm)
	})

	return vfs.translate("mkdir", real, err)
}

// DeleteFile removes the file at segments. On Windows a read only file is
// retried once with the attribute cleared.
func (vfs *AvatarFS) DeleteFile(segments []string) error {
	real, err := vfs.resolver.RealPath(segments, false)
	if err != nil {
		return err
	}

	err = vfs.asAvatar(func() error {
		return removeEntry(real)
	})

	return vfs.translate("remove", real, err)
}

// DeleteFolder removes the folder at segments, recursively when asked.
// The file system root is never deleted.
func (vfs *AvatarFS) DeleteFolder(segments []string, recursive bool) error {
	real, err := vfs.resolver.RealPath(segments, false)
	if err != nil {
		return err
	}

	if isFileSystemRoot(real) {
		return compat.NewCompatError(compat.EventDeleteRootForbidden,
			"Deleting the root folder is not allowed.")
	}

	err = vfs.asAvatar(func() error {
		if recursive {
			return removeTree(real)
		}

		return removeEntry(real)
	})

	return vfs.translate("rmdir", real, err)
}

// Rename moves the entry at from to to.
func (vfs *AvatarFS) Rename(from, to []string) error {
	fromReal, err := vfs.resolver.RealPath(from, false)
	if err != nil {
		return err
	}

	toReal, err := vfs.resolver.RealPath(to, false)
	if err != nil {
		return err
	}

	err = vfs.asAvatar(func() error {
		return os.Rename(fromReal, toReal)
	})

	return vfs.translate("rename", toReal, err)
}

// CopyFile copies the file at from to to. A folder destination receives the
// source's base name; an existing destination fails before any data is
// copied unless overwrite is set.
func (vfs *AvatarFS) CopyFile(from, to []string, overwrite bool) error {
	fromReal, err := vfs.resolver.RealPath(from, true)
	if err != nil {
		return err
	}

	toReal, err := vfs.resolver.RealPath(to, false)
	if err != nil {
		return err
	}

	sep := string(compat.PathSeparator())

	return vfs.asAvatar(func() error {
		if info, statErr := os.Stat(toReal); statErr == nil && info.IsDir() {
			toReal += sep + segmentsName(from)
		}

		flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
		if overwrite {
			flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		}

		src, openErr := os.Open(fromReal)
		if openErr != nil {
			return vfs.translate("open", fromReal, openErr)
		}

		defer src.Close()

		dst, openErr := os.OpenFile(toReal, flags, compat.DefaultFilePerm)
		if openErr != nil {
			return vfs.translate("open", toReal, openErr)
		}

		_, copyErr := io.Copy(dst, src)

		closeErr := dst.Close()
		if copyErr == nil {
			copyErr = closeErr
		}

		return vfs.translate("copy", toReal, copyErr)
	})
}

// OpenFileForReading opens the file at segments read only.
func (vfs *AvatarFS) OpenFileForReading(segments []string) (*os.File, error) {
	return vfs.openFile(segments, os.O_RDONLY, true)
}

// OpenFileForWriting opens the file at segments write only, creating it
// owner read/write and truncating existing content.
func (vfs *AvatarFS) OpenFileForWriting(segments []string) (*os.File, error) {
	return vfs.openFile(segments, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, false)
}

// OpenFileForAppending opens the file at segments for appending only,
// creating it owner read/write. Read access is not granted.
func (vfs *AvatarFS) OpenFileForAppending(segments []string) (*os.File, error) {
	return vfs.openFile(segments, os.O_WRONLY|os.O_CREATE|os.O_APPEND, false)
}

func (vfs *AvatarFS) openFile(segments []string, flags int, includeVirtual bool) (*os.File, error) {
	real, err := vfs.resolver.RealPath(segments, includeVirtual)
	if err != nil {
		return nil, err
	}

	var f *os.File

	err = vfs.asAvatar(func() error {
		f, err = os.OpenFile(real, flags, compat.DefaultFilePerm)

		return err
	})
	if err != nil {
		return nil, vfs.translate("open", real, err)
	}

	return f, nil
}

// ReadFile returns the content of the file at segments.
func (vfs *AvatarFS) ReadFile(segments []string) ([]byte, error) {
	f, err := vfs.OpenFileForReading(segments)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, vfs.translate("read", f.Name(), err)
	}

	return data, nil
}

// WriteFile replaces the content of the file at segments.
func (vfs *AvatarFS) WriteFile(segments []string, data []byte) error {
	f, err := vfs.OpenFileForWriting(segments)
	if err != nil {
		return err
	}

	_, err = f.Write(data)

	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}

	return vfs.translate("write", f.Name(), err)
}

// CreateTemp creates a new file in the folder at dir, its name starting
// with prefix followed by a random suffix, and opens it for reading and
// writing.
func (vfs *AvatarFS) CreateTemp(dir []string, prefix string) (*os.File, error) {
	real, err := vfs.resolver.RealPath(dir, true)
	if err != nil {
		return nil, err
	}

	sep := string(compat.PathSeparator())

	var f *os.File

	err = vfs.asAvatar(func() error {
		try := 0

		for {
			name := real + sep + prefix + nextRandom()

			var openErr error

			f, openErr = os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, compat.DefaultFilePerm)
			if errors.Is(openErr, fs.ErrExist) {
				if try++; try < 10000 {
					continue
				}

				return &fs.PathError{Op: "createtemp", Path: real + sep + prefix + "*", Err: fs.ErrExist}
			}

			return openErr
		}
	})
	if err != nil {
		return nil, vfs.translate("createtemp", real, err)
	}

	return f, nil
}

func nextRandom() string {
	return strconv.FormatUint(uint64(fastrand.Uint32()), 10)
}

// TouchFile creates the file at segments when missing and updates its
// access and modification times to now.
func (vfs *AvatarFS) TouchFile(segments []string) error {
	real, err := vfs.resolver.RealPath(segments, false)
	if err != nil {
		return err
	}

	err = vfs.asAvatar(func() error {
		f, openErr := os.OpenFile(real, os.O_WRONLY|os.O_CREATE, compat.DefaultFilePerm)
		if openErr != nil {
			return openErr
		}

		if closeErr := f.Close(); closeErr != nil {
			return closeErr
		}

		now := time.Now()

		return os.Chtimes(real, now, now)
	})

	return vfs.translate("touch", real, err)
}

// SetOwner makes the account named owner the owner of the entry at
// segments. The name is resolved before any privileged call is made.
func (vfs *AvatarFS) SetOwner(segments []string, owner string) error {
	ownerErr := compat.NewCompatError(compat.EventSetOwnerFailed,
		"Failed to set owner to '"+owner+"'.")

	real, err := vfs.resolver.RealPath(segments, false)
	if err != nil {
		return err
	}

	user, err := vfs.idm.LookupUser(owner)
	if err != nil {
		return ownerErr.WithDetails(err.Error())
	}

	err = vfs.asAvatar(func() error {
		return setOwnerPath(real, user)
	})
	if err != nil {
		return ownerErr.WithDetails(err.Error())
	}

	return nil
}

// AddGroup grants the group named group access to the entry at segments.
// On POSIX this sets the owning group.
func (vfs *AvatarFS) AddGroup(segments []string, group string) error {
	groupErr := compat.NewCompatError(compat.EventAddGroupFailed,
		"Failed to add group '"+group+"'.")

	real, err := vfs.resolver.RealPath(segments, false)
	if err != nil {
		return err
	}

	g, err := vfs.idm.LookupGroup(group)
	if err != nil {
		return groupErr.WithDetails(err.Error())
	}

	err = vfs.asAvatar(func() error {
		return addGroupPath(real, g)
	})
	if err != nil {
		return groupErr.WithDetails(err.Error())
	}

	return nil
}

// RemoveGroup revokes the access of the group named group from the entry
// at segments. An unknown group name fails; on POSIX a known group that
// is not the owning group is a no-op.
func (vfs *AvatarFS) RemoveGroup(segments []string, group string) error {
	removeErr := compat.NewCompatError(compat.EventUnknownGroupRemoval,
		"Failed to remove group '"+group+"'.")

	real, err := vfs.resolver.RealPath(segments, false)
	if err != nil {
		return err
	}

	g, err := vfs.idm.LookupGroup(group)
	if err != nil {
		return removeErr.WithDetails(err.Error())
	}

	err = vfs.asAvatar(func() error {
		return removeGroupPath(real, g)
	})

	return vfs.translate("removegroup", real, err)
}

// SetGroup is disabled. Group changes are only permitted through AddGroup.
func (vfs *AvatarFS) SetGroup(segments []string, group string) error {
	return compat.InvalidArgumentError("Group can't be set. Use AddGroup instead.")
}

// Chmod changes the permission bits of the entry at segments.
func (vfs *AvatarFS) Chmod(segments []string, mode fs.FileMode) error {
	real, err := vfs.resolver.RealPath(segments, false)
	if err != nil {
		return err
	}

	err = vfs.asAvatar(func() error {
		return os.Chmod(real, mode)
	})

	return vfs.translate("chmod", real, err)
}

// Chtimes changes the access and modification times of the entry at
// segments.
func (vfs *AvatarFS) Chtimes(segments []string, atime, mtime time.Time) error {
	real, err := vfs.resolver.RealPath(segments, false)
	if err != nil {
		return err
	}

	err = vfs.asAvatar(func() error {
		return os.Chtimes(real, atime, mtime)
	})

	return vfs.translate("chtimes", real, err)
}

// MakeLink creates a symbolic link at link pointing at target. It fails
// where the platform capabilities do not include symbolic links.
func (vfs *AvatarFS) MakeLink(target, link []string) error {
	targetReal, err := vfs.resolver.RealPath(target, true)
	if err != nil {
		return err
	}

	linkReal, err := vfs.resolver.RealPath(link, false)
	if err != nil {
		return err
	}

	if !compat.Capabilities().SupportsSymbolicLinks {
		return vfs.translate("symlink", linkReal, errors.ErrUnsupported)
	}

	err = vfs.asAvatar(func() error {
		return makeSymlink(targetReal, linkReal)
	})

	return vfs.translate("symlink", linkReal, err)
}

// ReadLink returns the logical segments of the target of the symbolic link
// at segments.
func (vfs *AvatarFS) ReadLink(segments []string) ([]string, error) {
	real, err := vfs.resolver.RealPath(segments, true)
	if err != nil {
		return nil, err
	}

	var target string

	err = vfs.asAvatar(func() error {
		target, err = os.Readlink(real)

		return err
	})
	if err != nil {
		return nil, vfs.translate("readlink", real, err)
	}

	target = absLinkTarget(real, target)

	return vfs.resolver.SegmentsFromRealPath(target)
}
